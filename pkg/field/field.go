// Package field implements signed-distance-field proximity queries for the
// primitive kinds a scenegraph node can carry (box, cylinder, sphere), the
// cross-frame query layer on top of them, and a sphere-tracing ray marcher.
//
// Every kind computes a signed distance in its own local frame. Kinds
// without a closed-form gradient fall back to a finite-difference estimate;
// the sphere overrides both the normal and the closest point with exact
// formulas. The frame-aware entry points (Distance, Normal, ClosestPoint)
// accept a query expressed in any reference frame and convert through the
// spatial hierarchy.
package field

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/nlocke/fieldkit/pkg/scenegraph"
	"github.com/nlocke/fieldkit/pkg/spatial"
)

// GradientEpsilon is the finite-difference step used for remote normal and
// closest-point calls.
const GradientEpsilon float32 = 0.001

// Kind identifies one of the closed set of field shapes. A node's field
// never changes kind after attachment.
type Kind int

const (
	KindBox Kind = iota
	KindCylinder
	KindSphere
)

func (k Kind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindCylinder:
		return "cylinder"
	case KindSphere:
		return "sphere"
	}
	return "unknown"
}

// Field extends the scenegraph field contract with kind identification.
type Field interface {
	scenegraph.Field
	Kind() Kind
}

// numericNormal estimates the outward surface gradient at p by backward
// differences: three extra distance evaluations, one per axis. Kinds with
// an exact gradient override LocalNormal instead of paying for this.
//
// A zero-length gradient (query at a symmetry center) normalizes to a
// non-finite vector; that degenerate case is deliberately unguarded.
func numericNormal(f scenegraph.Field, p mgl32.Vec3, epsilon float32) mgl32.Vec3 {
	d := f.LocalDistance(p)
	n := mgl32.Vec3{
		d - f.LocalDistance(mgl32.Vec3{p.X() - epsilon, p.Y(), p.Z()}),
		d - f.LocalDistance(mgl32.Vec3{p.X(), p.Y() - epsilon, p.Z()}),
		d - f.LocalDistance(mgl32.Vec3{p.X(), p.Y(), p.Z() - epsilon}),
	}
	return n.Normalize()
}

// numericClosestPoint projects p toward the surface along the estimated
// gradient: p - normal(p) * distance(p).
func numericClosestPoint(f scenegraph.Field, p mgl32.Vec3, epsilon float32) mgl32.Vec3 {
	return p.Sub(f.LocalNormal(p, epsilon).Mul(f.LocalDistance(p)))
}

// Distance returns the signed distance from p, expressed in the reference
// frame, to the field's surface. The scalar is returned unscaled: under the
// isometry assumption distance is frame-invariant, and non-uniform scale in
// the transform chain is a known, uncorrected precision caveat.
func Distance(f scenegraph.Field, reference *spatial.Spatial, p mgl32.Vec3) float32 {
	refToLocal := spatial.SpaceToSpace(reference, f.Spatial())
	return f.LocalDistance(spatial.TransformPoint(refToLocal, p))
}

// Normal returns the surface normal at p, expressed back in the reference
// frame. Only the linear part of the inverse transform applies, since a
// normal is a direction.
func Normal(f scenegraph.Field, reference *spatial.Spatial, p mgl32.Vec3, epsilon float32) mgl32.Vec3 {
	refToLocal := spatial.SpaceToSpace(reference, f.Spatial())
	local := f.LocalNormal(spatial.TransformPoint(refToLocal, p), epsilon)
	return spatial.TransformVector(refToLocal.Inv(), local)
}

// ClosestPoint returns the surface point nearest to p, expressed back in
// the reference frame via the full inverse affine transform.
func ClosestPoint(f scenegraph.Field, reference *spatial.Spatial, p mgl32.Vec3, epsilon float32) mgl32.Vec3 {
	refToLocal := spatial.SpaceToSpace(reference, f.Spatial())
	local := f.LocalClosestPoint(spatial.TransformPoint(refToLocal, p), epsilon)
	return spatial.TransformPoint(refToLocal.Inv(), local)
}
