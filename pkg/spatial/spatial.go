// Package spatial implements the transform hierarchy that gives scenegraph
// nodes a place in the world. A Spatial is a local 4x4 transform relative to
// an optional parent Spatial; the package's main job is answering "what is
// the matrix that maps coordinates from frame A into frame B".
package spatial

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Spatial is one frame in the transform hierarchy. The parent link is fixed
// at construction; the local transform is mutable and guarded so concurrent
// readers never observe a half-written matrix.
type Spatial struct {
	parent *Spatial

	mu        sync.RWMutex
	transform mgl32.Mat4
}

// New creates a Spatial with the given parent and local transform.
// A nil parent means the frame hangs directly off the implicit world root.
func New(parent *Spatial, transform mgl32.Mat4) *Spatial {
	return &Spatial{parent: parent, transform: transform}
}

// Parent returns the parent frame, or nil for root-level frames.
func (s *Spatial) Parent() *Spatial {
	return s.parent
}

// Transform returns the local transform relative to the parent.
func (s *Spatial) Transform() mgl32.Mat4 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transform
}

// SetTransform replaces the local transform. Takes effect for all
// subsequent frame queries.
func (s *Spatial) SetTransform(m mgl32.Mat4) {
	s.mu.Lock()
	s.transform = m
	s.mu.Unlock()
}

// LocalToWorld returns the matrix mapping this frame's coordinates into
// the implicit world root, accumulated over the parent chain.
func (s *Spatial) LocalToWorld() mgl32.Mat4 {
	m := s.Transform()
	for p := s.parent; p != nil; p = p.parent {
		m = p.Transform().Mul4(m)
	}
	return m
}

// WorldToLocal returns the inverse of LocalToWorld.
func (s *Spatial) WorldToLocal() mgl32.Mat4 {
	return s.LocalToWorld().Inv()
}

// SpaceToSpace returns the matrix mapping coordinates expressed in the from
// frame into the to frame. A nil side stands for the world root, so
// SpaceToSpace(nil, nil) is the identity.
func SpaceToSpace(from, to *Spatial) mgl32.Mat4 {
	fromWorld := mgl32.Ident4()
	if from != nil {
		fromWorld = from.LocalToWorld()
	}
	if to == nil {
		return fromWorld
	}
	return to.WorldToLocal().Mul4(fromWorld)
}

// TransformPoint applies the full affine transform m to the point p.
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TransformVector applies only the linear part of m to the vector v,
// ignoring translation. Used for directions and normals.
func TransformVector(m mgl32.Mat4, v mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(v.Vec4(0)).Vec3()
}
