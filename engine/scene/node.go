// Package scene holds the node hierarchy of loaded scenes and turns it into
// render objects each frame.
package scene

import (
	"weak"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Renderable is anything that can add render objects to a draw context.
type Renderable interface {
	Draw(topMatrix mgl32.Mat4, ctx *metadata.DrawContext)
}

/**
 * @brief A node of the scene graph. Children are owned by their parent, the
 * parent link is weak so a detached subtree never keeps its former parent
 * alive. A node with a mesh emits one render object per mesh surface.
 */
type Node struct {
	ID   uuid.UUID
	Name string

	parent   weak.Pointer[Node]
	Children []*Node

	LocalTransform mgl32.Mat4
	WorldTransform mgl32.Mat4

	// Mesh is nil for plain transform nodes.
	Mesh *metadata.MeshAsset
}

func NewNode(name string, mesh *metadata.MeshAsset) *Node {
	return &Node{
		ID:             uuid.New(),
		Name:           name,
		LocalTransform: mgl32.Ident4(),
		WorldTransform: mgl32.Ident4(),
		Mesh:           mesh,
	}
}

// Parent returns the parent node, or nil for roots and collected parents.
func (n *Node) Parent() *Node {
	return n.parent.Value()
}

func (n *Node) AddChild(child *Node) {
	if old := child.Parent(); old != nil {
		old.RemoveChild(child)
	}
	child.parent = weak.Make(n)
	n.Children = append(n.Children, child)
}

func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.parent = weak.Pointer[Node]{}
			return
		}
	}
}

// RefreshTransform recomputes the world transform of n and its subtree.
func (n *Node) RefreshTransform(parentMatrix mgl32.Mat4) {
	n.WorldTransform = parentMatrix.Mul4(n.LocalTransform)
	for _, c := range n.Children {
		c.RefreshTransform(n.WorldTransform)
	}
}

func (n *Node) Draw(topMatrix mgl32.Mat4, ctx *metadata.DrawContext) {
	if n.Mesh != nil {
		nodeMatrix := topMatrix.Mul4(n.WorldTransform)
		for i := range n.Mesh.Surfaces {
			s := &n.Mesh.Surfaces[i]
			if s.Material == nil {
				continue
			}
			obj := metadata.RenderObject{
				IndexCount:          s.Count,
				FirstIndex:          s.StartIndex,
				IndexBuffer:         n.Mesh.MeshBuffers.IndexBuffer.Buffer,
				Material:            &s.Material.Data,
				Bounds:              s.Bounds,
				Transform:           nodeMatrix,
				VertexBufferAddress: n.Mesh.MeshBuffers.VertexBufferAddress,
			}
			if s.Material.Data.PassType == metadata.MaterialPassTransparent {
				ctx.TransparentSurfaces = append(ctx.TransparentSurfaces, obj)
			} else {
				ctx.OpaqueSurfaces = append(ctx.OpaqueSurfaces, obj)
			}
		}
	}

	for _, c := range n.Children {
		c.Draw(topMatrix, ctx)
	}
}
