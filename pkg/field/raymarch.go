package field

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/nlocke/fieldkit/pkg/scenegraph"
	"github.com/nlocke/fieldkit/pkg/spatial"
)

// Ray is a query ray: origin and direction expressed in Space. Constructed
// per call, never stored.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
	Space     *spatial.Spatial
}

// RayMarchResult reports a ray's closest approach to a field. Distance is
// the minimum local distance observed along the march,
// DeepestPointDistance the arc length at which that minimum occurred,
// RayLength the total arc length traveled, and RaySteps the number of
// iterations taken.
type RayMarchResult struct {
	Ray                  Ray
	Distance             float32
	DeepestPointDistance float32
	RayLength            float32
	RaySteps             uint32
}

// Sphere-tracing budgets. The step floor keeps the march from stalling on
// or inside a surface where the sampled distance is non-positive.
const (
	MaxRaySteps uint32 = 1000

	MinRayMarch float32 = 0.001
	MaxRayMarch float32 = math.MaxFloat32

	MaxRayLength float32 = 1000
)

// RayMarch sphere-traces the ray against the field and reports its closest
// approach. The loop runs to the step and arc-length budgets
// unconditionally: detecting a near-zero or negative distance does not
// stop it. The result doubles as closest-approach telemetry, not a
// boolean hit test, so do not add an early exit.
func RayMarch(ray Ray, f scenegraph.Field) RayMarchResult {
	result := RayMarchResult{
		Ray:      ray,
		Distance: math.MaxFloat32,
	}

	rayToField := spatial.SpaceToSpace(ray.Space, f.Spatial())
	point := spatial.TransformPoint(rayToField, ray.Origin)
	direction := spatial.TransformVector(rayToField, ray.Direction)

	for result.RaySteps < MaxRaySteps && result.RayLength < MaxRayLength {
		distance := f.LocalDistance(point)
		march := mgl32.Clamp(distance, MinRayMarch, MaxRayMarch)

		result.RayLength += march
		point = point.Add(direction.Mul(march))

		if result.Distance > distance {
			result.DeepestPointDistance = result.RayLength
		}
		result.Distance = min(distance, result.Distance)

		result.RaySteps++
	}

	return result
}
