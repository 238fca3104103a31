package field

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/nlocke/fieldkit/pkg/scenegraph"
	"github.com/nlocke/fieldkit/pkg/spatial"
	"github.com/nlocke/fieldkit/pkg/wire"
)

// Sphere is a sphere field centered on its frame's origin. The radius is a
// single scalar behind a lock-free atomic.
type Sphere struct {
	space  *spatial.Spatial
	radius atomicF32
}

// AttachSphere creates a sphere field on the node and installs it in the
// node's set-once field slot. Fails if the node has no spatial frame or
// already carries a field; on failure nothing is attached.
func AttachSphere(node *scenegraph.Node, radius float32) (*Sphere, error) {
	sp := node.Spatial()
	if sp == nil {
		return nil, fmt.Errorf("attach sphere field: %w", scenegraph.ErrNoSpatial)
	}
	s := &Sphere{space: sp}
	s.radius.Store(radius)
	if err := node.SetField(s); err != nil {
		return nil, fmt.Errorf("attach sphere field: %w", err)
	}
	addFieldMethods(node)
	node.AddSignal("setRadius", sphereSetRadiusSignal)
	return s, nil
}

// Radius returns the current radius.
func (s *Sphere) Radius() float32 { return s.radius.Load() }

// SetRadius replaces the radius. No validation is applied.
func (s *Sphere) SetRadius(radius float32) {
	s.radius.Store(radius)
}

// Kind returns KindSphere.
func (s *Sphere) Kind() Kind { return KindSphere }

// Spatial returns the field's local frame.
func (s *Sphere) Spatial() *spatial.Spatial { return s.space }

// LocalDistance is the exact sphere SDF: |p| - r.
func (s *Sphere) LocalDistance(p mgl32.Vec3) float32 {
	return p.Len() - s.radius.Load()
}

// LocalNormal returns -normalize(p): it points toward the sphere's center,
// the opposite of the outward gradient the numeric estimator produces for
// the other kinds. Preserved as-is; callers relying on a consistent
// convention across kinds must account for it. At p = origin the result
// is non-finite (0/0), deliberately unguarded.
func (s *Sphere) LocalNormal(p mgl32.Vec3, _ float32) mgl32.Vec3 {
	return p.Normalize().Mul(-1)
}

// LocalClosestPoint is exact: the surface point along p's direction.
func (s *Sphere) LocalClosestPoint(p mgl32.Vec3, _ float32) mgl32.Vec3 {
	return p.Normalize().Mul(s.radius.Load())
}

func sphereSetRadiusSignal(node *scenegraph.Node, _ scenegraph.Caller, data []byte) error {
	radius, err := wire.DecodeF32(data)
	if err != nil {
		return fmt.Errorf("setRadius: %w", err)
	}
	if s, ok := node.Field().(*Sphere); ok {
		s.SetRadius(radius)
	}
	return nil
}
