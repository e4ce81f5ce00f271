package descriptors

import "github.com/spaghettifunk/lumen/engine/renderer/metadata"

// Writer accumulates descriptor writes and applies them in one update.
type Writer struct {
	imageInfos  []*metadata.DescriptorImageInfo
	bufferInfos []*metadata.DescriptorBufferInfo
	writes      []metadata.DescriptorWrite
}

func (w *Writer) WriteImage(binding uint32, view metadata.ImageView, sampler metadata.Sampler, layout metadata.ImageLayout, descriptorType metadata.DescriptorType) {
	info := &metadata.DescriptorImageInfo{
		Sampler: sampler,
		View:    view,
		Layout:  layout,
	}
	w.imageInfos = append(w.imageInfos, info)
	w.writes = append(w.writes, metadata.DescriptorWrite{
		Binding: binding,
		Type:    descriptorType,
		Image:   info,
	})
}

func (w *Writer) WriteBuffer(binding uint32, buffer metadata.Buffer, size, offset uint64, descriptorType metadata.DescriptorType) {
	info := &metadata.DescriptorBufferInfo{
		Buffer: buffer,
		Offset: offset,
		Range:  size,
	}
	w.bufferInfos = append(w.bufferInfos, info)
	w.writes = append(w.writes, metadata.DescriptorWrite{
		Binding: binding,
		Type:    descriptorType,
		Buffer:  info,
	})
}

func (w *Writer) Clear() {
	w.imageInfos = w.imageInfos[:0]
	w.bufferInfos = w.bufferInfos[:0]
	w.writes = w.writes[:0]
}

// UpdateSet issues every pending write against set in a single call.
func (w *Writer) UpdateSet(device Device, set metadata.DescriptorSet) {
	if len(w.writes) == 0 {
		return
	}
	device.UpdateDescriptorSet(set, w.writes)
}

// Pending returns the writes queued since the last Clear.
func (w *Writer) Pending() []metadata.DescriptorWrite {
	return w.writes
}
