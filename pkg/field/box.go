package field

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/nlocke/fieldkit/pkg/scenegraph"
	"github.com/nlocke/fieldkit/pkg/spatial"
	"github.com/nlocke/fieldkit/pkg/wire"
)

// Box is an axis-aligned box field centered on its frame's origin.
// The extent vector is a composite parameter: it sits behind a mutex so a
// concurrent reader never observes a half-updated size.
type Box struct {
	space *spatial.Spatial

	mu   sync.Mutex
	size mgl32.Vec3
}

// AttachBox creates a box field on the node and installs it in the node's
// set-once field slot. Fails if the node has no spatial frame or already
// carries a field; on failure nothing is attached.
func AttachBox(node *scenegraph.Node, size mgl32.Vec3) (*Box, error) {
	sp := node.Spatial()
	if sp == nil {
		return nil, fmt.Errorf("attach box field: %w", scenegraph.ErrNoSpatial)
	}
	b := &Box{space: sp, size: size}
	if err := node.SetField(b); err != nil {
		return nil, fmt.Errorf("attach box field: %w", err)
	}
	addFieldMethods(node)
	node.AddSignal("setSize", boxSetSizeSignal)
	return b, nil
}

// Size returns the current extent vector.
func (b *Box) Size() mgl32.Vec3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// SetSize replaces the extent vector. No validation: zero or negative
// extents are stored as-is and the math downstream produces whatever
// that implies.
func (b *Box) SetSize(size mgl32.Vec3) {
	b.mu.Lock()
	b.size = size
	b.mu.Unlock()
}

// Kind returns KindBox.
func (b *Box) Kind() Kind { return KindBox }

// Spatial returns the field's local frame.
func (b *Box) Spatial() *spatial.Spatial { return b.space }

// LocalDistance reflects p into the positive octant, subtracts the half
// extents, and combines the outside distance with the inside depth.
func (b *Box) LocalDistance(p mgl32.Vec3) float32 {
	size := b.Size()
	q := mgl32.Vec3{
		abs32(p.X()) - size.X()*0.5,
		abs32(p.Y()) - size.Y()*0.5,
		abs32(p.Z()) - size.Z()*0.5,
	}
	outside := mgl32.Vec3{
		max(q.X(), 0),
		max(q.Y(), 0),
		max(q.Z(), 0),
	}
	return outside.Len() + min(max(q.X(), max(q.Y(), q.Z())), 0)
}

// LocalNormal uses the finite-difference estimate; the box has no exact
// gradient override.
func (b *Box) LocalNormal(p mgl32.Vec3, epsilon float32) mgl32.Vec3 {
	return numericNormal(b, p, epsilon)
}

// LocalClosestPoint projects along the estimated gradient.
func (b *Box) LocalClosestPoint(p mgl32.Vec3, epsilon float32) mgl32.Vec3 {
	return numericClosestPoint(b, p, epsilon)
}

func boxSetSizeSignal(node *scenegraph.Node, _ scenegraph.Caller, data []byte) error {
	size, err := wire.DecodeVec3(data)
	if err != nil {
		return fmt.Errorf("setSize: %w", err)
	}
	if b, ok := node.Field().(*Box); ok {
		b.SetSize(size)
	}
	return nil
}
