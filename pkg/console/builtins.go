package console

import (
	"fmt"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/nlocke/fieldkit/pkg/field"
	"github.com/nlocke/fieldkit/pkg/scenegraph"
	"github.com/nlocke/fieldkit/pkg/spatial"
	"github.com/nlocke/fieldkit/pkg/wire"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing geometric values through the environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps an mgl32.Vec3 so it can be passed between builtins.
type sexpVec3 struct {
	vec mgl32.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X(), v.vec.Y(), v.vec.Z())
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpQuat wraps an mgl32.Quat.
type sexpQuat struct {
	quat mgl32.Quat
}

func (q *sexpQuat) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(quat %g %g %g %g)", q.quat.V.X(), q.quat.V.Y(), q.quat.V.Z(), q.quat.W)
}
func (q *sexpQuat) Type() *zygo.RegisteredType { return nil }

// sexpRayMarch wraps a ray-march result for display.
type sexpRayMarch struct {
	result field.RayMarchResult
}

func (r *sexpRayMarch) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(ray-march-result :distance %g :deepest-point %g :length %g :steps %d)",
		r.result.Distance, r.result.DeepestPointDistance, r.result.RayLength, r.result.RaySteps)
}
func (r *sexpRayMarch) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toF32(s zygo.Sexp) (float32, error) {
	f, err := toFloat64(s)
	return float32(f), err
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (mgl32.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toQuat(s zygo.Sexp) (mgl32.Quat, error) {
	if q, ok := s.(*sexpQuat); ok {
		return q.quat, nil
	}
	return mgl32.Quat{}, fmt.Errorf("expected quat, got %T (%s)", s, s.SexpString(nil))
}

// argCheck fails unless exactly want arguments were supplied.
func argCheck(name string, args []zygo.Sexp, want int) error {
	if len(args) != want {
		return fmt.Errorf("%s: expected %d arguments, got %d", name, want, len(args))
	}
	return nil
}

// fieldNode resolves a path to a node carrying a field.
func (e *Engine) fieldNode(path string) (*scenegraph.Node, error) {
	n := e.graph.Get(path)
	if n == nil {
		return nil, fmt.Errorf("field node %q: %w", path, scenegraph.ErrNodeNotFound)
	}
	if n.Field() == nil {
		return nil, fmt.Errorf("node %q has no field", path)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the console builtins into a zygomys
// environment. Creation and mutation commands go through the same wire
// handlers a remote client would hit; queries invoke the registered node
// methods and decode their encoded results.
func registerBuiltins(env *zygo.Zlisp, e *Engine) {

	// (vec3 x y z)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := argCheck("vec3", args, 3); err != nil {
			return zygo.SexpNull, err
		}
		var v mgl32.Vec3
		for i := 0; i < 3; i++ {
			f, err := toF32(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (quat x y z w)
	env.AddFunction("quat", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := argCheck("quat", args, 4); err != nil {
			return zygo.SexpNull, err
		}
		var q [4]float32
		for i := 0; i < 4; i++ {
			f, err := toF32(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("quat: %w", err)
			}
			q[i] = f
		}
		return &sexpQuat{quat: mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}}, nil
	})

	// (create-spatial "/path" "/parent" (vec3 ...) (quat ...))
	env.AddFunction("create_spatial", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := argCheck("create-spatial", args, 4); err != nil {
			return zygo.SexpNull, err
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-spatial: path: %w", err)
		}
		parentPath, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-spatial: parent: %w", err)
		}
		pos, err := toVec3(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-spatial: position: %w", err)
		}
		rot, err := toQuat(args[3])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-spatial: rotation: %w", err)
		}
		parentNode := e.graph.Get(parentPath)
		if parentNode == nil {
			return zygo.SexpNull, fmt.Errorf("create-spatial: parent %q: %w", parentPath, scenegraph.ErrNodeNotFound)
		}
		parent := parentNode.Spatial()
		if parent == nil {
			return zygo.SexpNull, fmt.Errorf("create-spatial: parent %q: %w", parentPath, scenegraph.ErrNoSpatial)
		}
		node := scenegraph.NewNode(path)
		transform := mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).Mul4(rot.Mat4())
		if err := node.SetSpatial(spatial.New(parent, transform)); err != nil {
			return zygo.SexpNull, fmt.Errorf("create-spatial: %w", err)
		}
		field.AddSpatialSignals(node)
		if err := e.graph.Add(node); err != nil {
			return zygo.SexpNull, fmt.Errorf("create-spatial: %w", err)
		}
		return &zygo.SexpStr{S: path}, nil
	})

	// (set-transform "/path" (vec3 pos) (quat rot))
	env.AddFunction("set_transform", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := argCheck("set-transform", args, 3); err != nil {
			return zygo.SexpNull, err
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-transform: path: %w", err)
		}
		pos, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-transform: position: %w", err)
		}
		rot, err := toQuat(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-transform: rotation: %w", err)
		}
		node := e.graph.Get(path)
		if node == nil {
			return zygo.SexpNull, fmt.Errorf("set-transform: %q: %w", path, scenegraph.ErrNodeNotFound)
		}
		data, err := wire.EncodeArgs(wire.Vec3Arg(pos), wire.QuatArg(rot))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-transform: %w", err)
		}
		if err := node.Send(e, "setTransform", data); err != nil {
			return zygo.SexpNull, fmt.Errorf("set-transform: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (create-box-field "name" "/parent" (vec3 pos) (quat rot) (vec3 size))
	env.AddFunction("create_box_field", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := argCheck("create-box-field", args, 5); err != nil {
			return zygo.SexpNull, err
		}
		fieldName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-box-field: name: %w", err)
		}
		parent, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-box-field: parent: %w", err)
		}
		pos, err := toVec3(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-box-field: position: %w", err)
		}
		rot, err := toQuat(args[3])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-box-field: rotation: %w", err)
		}
		size, err := toVec3(args[4])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-box-field: size: %w", err)
		}
		data, err := wire.EncodeArgs(fieldName, parent, wire.Vec3Arg(pos), wire.QuatArg(rot), wire.Vec3Arg(size))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-box-field: %w", err)
		}
		if err := e.sendCreate("createBoxField", data); err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpStr{S: field.InterfacePath + "/" + fieldName}, nil
	})

	// (create-cylinder-field "name" "/parent" (vec3 pos) (quat rot) length radius)
	env.AddFunction("create_cylinder_field", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := argCheck("create-cylinder-field", args, 6); err != nil {
			return zygo.SexpNull, err
		}
		fieldName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-cylinder-field: name: %w", err)
		}
		parent, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-cylinder-field: parent: %w", err)
		}
		pos, err := toVec3(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-cylinder-field: position: %w", err)
		}
		rot, err := toQuat(args[3])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-cylinder-field: rotation: %w", err)
		}
		length, err := toF32(args[4])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-cylinder-field: length: %w", err)
		}
		radius, err := toF32(args[5])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-cylinder-field: radius: %w", err)
		}
		data, err := wire.EncodeArgs(fieldName, parent, wire.Vec3Arg(pos), wire.QuatArg(rot), length, radius)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-cylinder-field: %w", err)
		}
		if err := e.sendCreate("createCylinderField", data); err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpStr{S: field.InterfacePath + "/" + fieldName}, nil
	})

	// (create-sphere-field "name" "/parent" (vec3 pos) radius)
	env.AddFunction("create_sphere_field", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := argCheck("create-sphere-field", args, 4); err != nil {
			return zygo.SexpNull, err
		}
		fieldName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-sphere-field: name: %w", err)
		}
		parent, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-sphere-field: parent: %w", err)
		}
		pos, err := toVec3(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-sphere-field: position: %w", err)
		}
		radius, err := toF32(args[3])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-sphere-field: radius: %w", err)
		}
		data, err := wire.EncodeArgs(fieldName, parent, wire.Vec3Arg(pos), radius)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-sphere-field: %w", err)
		}
		if err := e.sendCreate("createSphereField", data); err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpStr{S: field.InterfacePath + "/" + fieldName}, nil
	})

	// (set-size "/field/x" (vec3 ...))  for boxes
	// (set-size "/field/x" length radius)  for cylinders
	env.AddFunction("set_size", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 && len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("set-size: expected 2 or 3 arguments, got %d", len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-size: path: %w", err)
		}
		node, err := e.fieldNode(path)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-size: %w", err)
		}
		var data []byte
		if len(args) == 2 {
			size, err := toVec3(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("set-size: %w", err)
			}
			data, err = wire.EncodeVec3(size)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("set-size: %w", err)
			}
		} else {
			length, err := toF32(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("set-size: length: %w", err)
			}
			radius, err := toF32(args[2])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("set-size: radius: %w", err)
			}
			data, err = wire.EncodeArgs(length, radius)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("set-size: %w", err)
			}
		}
		if err := node.Send(e, "setSize", data); err != nil {
			return zygo.SexpNull, fmt.Errorf("set-size: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (set-radius "/field/x" r)
	env.AddFunction("set_radius", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := argCheck("set-radius", args, 2); err != nil {
			return zygo.SexpNull, err
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-radius: path: %w", err)
		}
		radius, err := toF32(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-radius: %w", err)
		}
		node, err := e.fieldNode(path)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-radius: %w", err)
		}
		data, err := wire.Marshal(radius)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-radius: %w", err)
		}
		if err := node.Send(e, "setRadius", data); err != nil {
			return zygo.SexpNull, fmt.Errorf("set-radius: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (distance "/field/x" "/observer" (vec3 ...))
	env.AddFunction("distance", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		result, err := e.invokeQuery("distance", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		d, err := wire.DecodeF32(result)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distance: %w", err)
		}
		return &zygo.SexpFloat{Val: float64(d)}, nil
	})

	// (normal "/field/x" "/observer" (vec3 ...))
	env.AddFunction("normal", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		result, err := e.invokeQuery("normal", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		v, err := wire.DecodeVec3(result)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("normal: %w", err)
		}
		return &sexpVec3{vec: v}, nil
	})

	// (closest-point "/field/x" "/observer" (vec3 ...))
	env.AddFunction("closest_point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		result, err := e.invokeQuery("closest_point", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		v, err := wire.DecodeVec3(result)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("closest-point: %w", err)
		}
		return &sexpVec3{vec: v}, nil
	})

	// (ray-march "/field/x" "/observer" (vec3 origin) (vec3 direction))
	env.AddFunction("ray_march", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := argCheck("ray-march", args, 4); err != nil {
			return zygo.SexpNull, err
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ray-march: path: %w", err)
		}
		refPath, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ray-march: reference: %w", err)
		}
		origin, err := toVec3(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ray-march: origin: %w", err)
		}
		direction, err := toVec3(args[3])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ray-march: direction: %w", err)
		}
		node, err := e.fieldNode(path)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ray-march: %w", err)
		}
		refNode := e.graph.Get(refPath)
		if refNode == nil {
			return zygo.SexpNull, fmt.Errorf("ray-march: reference %q: %w", refPath, scenegraph.ErrNodeNotFound)
		}
		space := refNode.Spatial()
		if space == nil {
			return zygo.SexpNull, fmt.Errorf("ray-march: reference %q: %w", refPath, scenegraph.ErrNoSpatial)
		}
		ray := field.Ray{Origin: origin, Direction: direction, Space: space}
		return &sexpRayMarch{result: field.RayMarch(ray, node.Field())}, nil
	})
}

// sendCreate fires a creation signal at the field interface node.
func (e *Engine) sendCreate(signal string, data []byte) error {
	iface := e.graph.Get(field.InterfacePath)
	if iface == nil {
		return fmt.Errorf("%s: interface %q: %w", signal, field.InterfacePath, scenegraph.ErrNodeNotFound)
	}
	return iface.Send(e, signal, data)
}

// invokeQuery runs one of the shared (path refpath point) query methods
// and returns its encoded result.
func (e *Engine) invokeQuery(method string, args []zygo.Sexp) ([]byte, error) {
	if err := argCheck(method, args, 3); err != nil {
		return nil, err
	}
	path, err := toString(args[0])
	if err != nil {
		return nil, fmt.Errorf("%s: path: %w", method, err)
	}
	refPath, err := toString(args[1])
	if err != nil {
		return nil, fmt.Errorf("%s: reference: %w", method, err)
	}
	point, err := toVec3(args[2])
	if err != nil {
		return nil, fmt.Errorf("%s: point: %w", method, err)
	}
	node, err := e.fieldNode(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	data, err := wire.EncodeArgs(refPath, wire.Vec3Arg(point))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return node.Invoke(e, method, data)
}
