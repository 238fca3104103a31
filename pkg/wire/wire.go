// Package wire encodes and decodes remote-call payloads. Arguments travel
// as compact self-describing msgpack: positional vectors of scalars,
// strings, 3-vectors and quaternions. Nothing here depends on the byte
// layout beyond what the codec provides.
package wire

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ugorji/go/codec"
)

// ErrMalformed wraps every decode failure so callers can classify it.
var ErrMalformed = errors.New("malformed argument")

var handle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.RawToString = true
	return h
}()

// Marshal encodes v as msgpack.
func Marshal(v any) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, handle).Encode(v); err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return out, nil
}

// Unmarshal decodes msgpack data into v.
func Unmarshal(data []byte, v any) error {
	if err := codec.NewDecoderBytes(data, handle).Decode(v); err != nil {
		return fmt.Errorf("wire: decode: %w: %v", ErrMalformed, err)
	}
	return nil
}

// Args is a decoded positional argument vector.
type Args []any

// DecodeArgs decodes data as a positional argument vector.
func DecodeArgs(data []byte) (Args, error) {
	var raw []any
	if err := Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return Args(raw), nil
}

// EncodeArgs encodes the values as a positional argument vector.
func EncodeArgs(args ...any) ([]byte, error) {
	return Marshal(args)
}

func (a Args) at(i int) (any, error) {
	if i < 0 || i >= len(a) {
		return nil, fmt.Errorf("wire: %w: argument %d missing (have %d)", ErrMalformed, i, len(a))
	}
	return a[i], nil
}

// String returns argument i as a string.
func (a Args) String(i int) (string, error) {
	v, err := a.at(i)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("wire: %w: argument %d is %T, want string", ErrMalformed, i, v)
	}
	return s, nil
}

// F32 returns argument i as a float32.
func (a Args) F32(i int) (float32, error) {
	v, err := a.at(i)
	if err != nil {
		return 0, err
	}
	f, ok := asF32(v)
	if !ok {
		return 0, fmt.Errorf("wire: %w: argument %d is %T, want number", ErrMalformed, i, v)
	}
	return f, nil
}

// Vec3 returns argument i as a 3-component vector.
func (a Args) Vec3(i int) (mgl32.Vec3, error) {
	v, err := a.at(i)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	vec, ok := asVec3(v)
	if !ok {
		return mgl32.Vec3{}, fmt.Errorf("wire: %w: argument %d is not a 3-vector", ErrMalformed, i)
	}
	return vec, nil
}

// Quat returns argument i as a quaternion, wire order [x y z w].
func (a Args) Quat(i int) (mgl32.Quat, error) {
	v, err := a.at(i)
	if err != nil {
		return mgl32.Quat{}, err
	}
	elems, ok := v.([]any)
	if !ok || len(elems) != 4 {
		return mgl32.Quat{}, fmt.Errorf("wire: %w: argument %d is not a quaternion", ErrMalformed, i)
	}
	var q [4]float32
	for j, e := range elems {
		f, ok := asF32(e)
		if !ok {
			return mgl32.Quat{}, fmt.Errorf("wire: %w: quaternion component %d is %T", ErrMalformed, j, e)
		}
		q[j] = f
	}
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}, nil
}

// DecodeF32 decodes data as a single scalar.
func DecodeF32(data []byte) (float32, error) {
	var raw any
	if err := Unmarshal(data, &raw); err != nil {
		return 0, err
	}
	f, ok := asF32(raw)
	if !ok {
		return 0, fmt.Errorf("wire: %w: value is %T, want number", ErrMalformed, raw)
	}
	return f, nil
}

// DecodeVec3 decodes data as a single 3-component vector.
func DecodeVec3(data []byte) (mgl32.Vec3, error) {
	var raw any
	if err := Unmarshal(data, &raw); err != nil {
		return mgl32.Vec3{}, err
	}
	v, ok := asVec3(raw)
	if !ok {
		return mgl32.Vec3{}, fmt.Errorf("wire: %w: value is not a 3-vector", ErrMalformed)
	}
	return v, nil
}

// EncodeF32 encodes a single scalar result.
func EncodeF32(f float32) ([]byte, error) {
	return Marshal(f)
}

// EncodeVec3 encodes a single 3-component vector result.
func EncodeVec3(v mgl32.Vec3) ([]byte, error) {
	return Marshal([]float32{v.X(), v.Y(), v.Z()})
}

// Vec3Arg converts a vector to the shape EncodeArgs expects for a
// 3-component positional argument.
func Vec3Arg(v mgl32.Vec3) []any {
	return []any{v.X(), v.Y(), v.Z()}
}

// QuatArg converts a quaternion to its wire shape, order [x y z w].
func QuatArg(q mgl32.Quat) []any {
	return []any{q.V.X(), q.V.Y(), q.V.Z(), q.W}
}

// asF32 accepts the numeric representations the codec may hand back for
// a msgpack number.
func asF32(v any) (float32, bool) {
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	case int64:
		return float32(n), true
	case uint64:
		return float32(n), true
	case int:
		return float32(n), true
	}
	return 0, false
}

func asVec3(v any) (mgl32.Vec3, bool) {
	elems, ok := v.([]any)
	if !ok || len(elems) != 3 {
		return mgl32.Vec3{}, false
	}
	var out mgl32.Vec3
	for i, e := range elems {
		f, ok := asF32(e)
		if !ok {
			return mgl32.Vec3{}, false
		}
		out[i] = f
	}
	return out, true
}
