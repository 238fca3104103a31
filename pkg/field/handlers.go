package field

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/nlocke/fieldkit/pkg/scenegraph"
	"github.com/nlocke/fieldkit/pkg/spatial"
	"github.com/nlocke/fieldkit/pkg/wire"
)

// addFieldMethods registers the three frame-aware query methods every
// field node exposes. Called by each attach function after the field slot
// is installed.
func addFieldMethods(node *scenegraph.Node) {
	node.AddMethod("distance", distanceMethod)
	node.AddMethod("normal", normalMethod)
	node.AddMethod("closest_point", closestPointMethod)
}

// AddSpatialSignals registers the transform mutation signal on a node
// carrying a spatial frame. Every creation path that attaches a frame to
// a registered node calls this, so remote callers can move any frame
// they created.
func AddSpatialSignals(node *scenegraph.Node) {
	node.AddSignal("setTransform", setTransformSignal)
}

// setTransformSignal replaces the node's local transform with a new
// position and rotation, both relative to the existing parent frame.
func setTransformSignal(node *scenegraph.Node, _ scenegraph.Caller, data []byte) error {
	args, err := wire.DecodeArgs(data)
	if err != nil {
		return fmt.Errorf("setTransform: %w", err)
	}
	position, err := args.Vec3(0)
	if err != nil {
		return fmt.Errorf("setTransform: position: %w", err)
	}
	rotation, err := args.Quat(1)
	if err != nil {
		return fmt.Errorf("setTransform: rotation: %w", err)
	}
	sp := node.Spatial()
	if sp == nil {
		return fmt.Errorf("setTransform: node %s: %w", node.Path(), scenegraph.ErrNoSpatial)
	}
	sp.SetTransform(mgl32.Translate3D(position.X(), position.Y(), position.Z()).Mul4(rotation.Mat4()))
	return nil
}

// resolveQuery decodes the shared [reference_frame_id, point] argument
// shape and resolves the reference frame against the caller's scenegraph.
func resolveQuery(node *scenegraph.Node, caller scenegraph.Caller, data []byte) (scenegraph.Field, *spatial.Spatial, mgl32.Vec3, error) {
	f := node.Field()
	if f == nil {
		return nil, nil, mgl32.Vec3{}, fmt.Errorf("node %s has no field", node.Path())
	}
	args, err := wire.DecodeArgs(data)
	if err != nil {
		return nil, nil, mgl32.Vec3{}, err
	}
	refPath, err := args.String(0)
	if err != nil {
		return nil, nil, mgl32.Vec3{}, fmt.Errorf("reference frame id: %w", err)
	}
	refNode := caller.Graph().Get(refPath)
	if refNode == nil {
		return nil, nil, mgl32.Vec3{}, fmt.Errorf("reference frame %q: %w", refPath, scenegraph.ErrNodeNotFound)
	}
	reference := refNode.Spatial()
	if reference == nil {
		return nil, nil, mgl32.Vec3{}, fmt.Errorf("reference frame %q: %w", refPath, scenegraph.ErrNoSpatial)
	}
	point, err := args.Vec3(1)
	if err != nil {
		return nil, nil, mgl32.Vec3{}, fmt.Errorf("point: %w", err)
	}
	return f, reference, point, nil
}

func distanceMethod(node *scenegraph.Node, caller scenegraph.Caller, data []byte) ([]byte, error) {
	f, reference, point, err := resolveQuery(node, caller, data)
	if err != nil {
		return nil, fmt.Errorf("distance: %w", err)
	}
	return wire.EncodeF32(Distance(f, reference, point))
}

func normalMethod(node *scenegraph.Node, caller scenegraph.Caller, data []byte) ([]byte, error) {
	f, reference, point, err := resolveQuery(node, caller, data)
	if err != nil {
		return nil, fmt.Errorf("normal: %w", err)
	}
	return wire.EncodeVec3(Normal(f, reference, point, GradientEpsilon))
}

func closestPointMethod(node *scenegraph.Node, caller scenegraph.Caller, data []byte) ([]byte, error) {
	f, reference, point, err := resolveQuery(node, caller, data)
	if err != nil {
		return nil, fmt.Errorf("closest_point: %w", err)
	}
	return wire.EncodeVec3(ClosestPoint(f, reference, point, GradientEpsilon))
}
