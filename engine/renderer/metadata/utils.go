package metadata

import "unsafe"

// AsBytes views a plain value as its raw bytes. T must not contain pointers.
func AsBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// SliceBytes views a slice of plain values as raw bytes. T must not contain pointers.
func SliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

func GetAligned(operand, granularity uint64) uint64 {
	return (operand + (granularity - 1)) &^ (granularity - 1)
}
