package field

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/nlocke/fieldkit/pkg/scenegraph"
	"github.com/nlocke/fieldkit/pkg/spatial"
	"github.com/nlocke/fieldkit/pkg/wire"
)

// InterfacePath is the registry node the field-creation signals live on.
// Field nodes created through it are addressed as InterfacePath + "/" + name.
const InterfacePath = "/field"

// CreateInterface registers the field-creation node in the scenegraph.
func CreateInterface(g *scenegraph.Scenegraph) error {
	node := scenegraph.NewNode(InterfacePath)
	node.AddSignal("createBoxField", createBoxFieldSignal)
	node.AddSignal("createCylinderField", createCylinderFieldSignal)
	node.AddSignal("createSphereField", createSphereFieldSignal)
	return g.Add(node)
}

// resolveParent looks up the parent frame by node path.
func resolveParent(caller scenegraph.Caller, path string) (*spatial.Spatial, error) {
	n := caller.Graph().Get(path)
	if n == nil {
		return nil, fmt.Errorf("parent frame %q: %w", path, scenegraph.ErrNodeNotFound)
	}
	sp := n.Spatial()
	if sp == nil {
		return nil, fmt.Errorf("parent frame %q: %w", path, scenegraph.ErrNoSpatial)
	}
	return sp, nil
}

// newFieldNode builds the node, its spatial frame, and registers it.
// Attachment failures after registration roll the node back out of the
// graph so a failed creation leaves nothing behind.
func newFieldNode(caller scenegraph.Caller, name, parentPath string, transform mgl32.Mat4) (*scenegraph.Node, error) {
	parent, err := resolveParent(caller, parentPath)
	if err != nil {
		return nil, err
	}
	node := scenegraph.NewNode(InterfacePath + "/" + name)
	if err := node.SetSpatial(spatial.New(parent, transform)); err != nil {
		return nil, err
	}
	AddSpatialSignals(node)
	if err := caller.Graph().Add(node); err != nil {
		return nil, err
	}
	return node, nil
}

func createBoxFieldSignal(_ *scenegraph.Node, caller scenegraph.Caller, data []byte) error {
	args, err := wire.DecodeArgs(data)
	if err != nil {
		return fmt.Errorf("createBoxField: %w", err)
	}
	name, err := args.String(0)
	if err != nil {
		return fmt.Errorf("createBoxField: name: %w", err)
	}
	parentPath, err := args.String(1)
	if err != nil {
		return fmt.Errorf("createBoxField: parent: %w", err)
	}
	position, err := args.Vec3(2)
	if err != nil {
		return fmt.Errorf("createBoxField: position: %w", err)
	}
	rotation, err := args.Quat(3)
	if err != nil {
		return fmt.Errorf("createBoxField: rotation: %w", err)
	}
	size, err := args.Vec3(4)
	if err != nil {
		return fmt.Errorf("createBoxField: size: %w", err)
	}

	transform := mgl32.Translate3D(position.X(), position.Y(), position.Z()).Mul4(rotation.Mat4())
	node, err := newFieldNode(caller, name, parentPath, transform)
	if err != nil {
		return fmt.Errorf("createBoxField: %w", err)
	}
	if _, err := AttachBox(node, size); err != nil {
		caller.Graph().Remove(node.Path())
		return fmt.Errorf("createBoxField: %w", err)
	}
	return nil
}

func createCylinderFieldSignal(_ *scenegraph.Node, caller scenegraph.Caller, data []byte) error {
	args, err := wire.DecodeArgs(data)
	if err != nil {
		return fmt.Errorf("createCylinderField: %w", err)
	}
	name, err := args.String(0)
	if err != nil {
		return fmt.Errorf("createCylinderField: name: %w", err)
	}
	parentPath, err := args.String(1)
	if err != nil {
		return fmt.Errorf("createCylinderField: parent: %w", err)
	}
	position, err := args.Vec3(2)
	if err != nil {
		return fmt.Errorf("createCylinderField: position: %w", err)
	}
	rotation, err := args.Quat(3)
	if err != nil {
		return fmt.Errorf("createCylinderField: rotation: %w", err)
	}
	length, err := args.F32(4)
	if err != nil {
		return fmt.Errorf("createCylinderField: length: %w", err)
	}
	radius, err := args.F32(5)
	if err != nil {
		return fmt.Errorf("createCylinderField: radius: %w", err)
	}

	transform := mgl32.Translate3D(position.X(), position.Y(), position.Z()).Mul4(rotation.Mat4())
	node, err := newFieldNode(caller, name, parentPath, transform)
	if err != nil {
		return fmt.Errorf("createCylinderField: %w", err)
	}
	if _, err := AttachCylinder(node, length, radius); err != nil {
		caller.Graph().Remove(node.Path())
		return fmt.Errorf("createCylinderField: %w", err)
	}
	return nil
}

// createSphereFieldSignal takes no rotation; a sphere is rotation
// invariant, so its transform is translation only.
func createSphereFieldSignal(_ *scenegraph.Node, caller scenegraph.Caller, data []byte) error {
	args, err := wire.DecodeArgs(data)
	if err != nil {
		return fmt.Errorf("createSphereField: %w", err)
	}
	name, err := args.String(0)
	if err != nil {
		return fmt.Errorf("createSphereField: name: %w", err)
	}
	parentPath, err := args.String(1)
	if err != nil {
		return fmt.Errorf("createSphereField: parent: %w", err)
	}
	position, err := args.Vec3(2)
	if err != nil {
		return fmt.Errorf("createSphereField: position: %w", err)
	}
	radius, err := args.F32(3)
	if err != nil {
		return fmt.Errorf("createSphereField: radius: %w", err)
	}

	transform := mgl32.Translate3D(position.X(), position.Y(), position.Z())
	node, err := newFieldNode(caller, name, parentPath, transform)
	if err != nil {
		return fmt.Errorf("createSphereField: %w", err)
	}
	if _, err := AttachSphere(node, radius); err != nil {
		caller.Graph().Remove(node.Path())
		return fmt.Errorf("createSphereField: %w", err)
	}
	return nil
}
