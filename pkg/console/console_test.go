package console

import (
	"math"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine()
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// eval runs source and fails the test on error.
func eval(t *testing.T, e *Engine, source string) string {
	t.Helper()
	out, err := e.Evaluate(source)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", source, err)
	}
	return out
}

// parseFloat parses a printed scalar result.
func parseFloat(t *testing.T, out string) float64 {
	t.Helper()
	f, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		t.Fatalf("result %q is not a number: %v", out, err)
	}
	return f
}

func TestCreateAndQuerySphere(t *testing.T) {
	e := newEngine(t)

	out := eval(t, e, `(create-sphere-field "ball" "/" (vec3 0 0 0) 5)`)
	if !strings.Contains(out, "/field/ball") {
		t.Fatalf("creation result = %q, want the new field path", out)
	}

	out = eval(t, e, `(distance "/field/ball" "/" (vec3 10 0 0))`)
	if d := parseFloat(t, out); math.Abs(d-5) > 1e-4 {
		t.Errorf("distance = %v, want 5", d)
	}

	out = eval(t, e, `(closest-point "/field/ball" "/" (vec3 10 0 0))`)
	if !strings.HasPrefix(out, "(vec3 ") {
		t.Errorf("closest-point printed %q", out)
	}
	if !strings.Contains(out, "5") {
		t.Errorf("closest-point = %q, want a point at x=5", out)
	}
}

func TestStateSurvivesAcrossEvaluations(t *testing.T) {
	// Each evaluation runs in a fresh sandbox, but the scenegraph is
	// long-lived: a field created in one evaluation is queryable in the
	// next.
	e := newEngine(t)
	eval(t, e, `(create-sphere-field "s" "/" (vec3 2 0 0) 1)`)
	out := eval(t, e, `(distance "/field/s" "/" (vec3 2 0 0))`)
	if d := parseFloat(t, out); math.Abs(d-(-1)) > 1e-4 {
		t.Errorf("distance at center = %v, want -1", d)
	}
}

func TestBoxCreateAndResize(t *testing.T) {
	e := newEngine(t)
	eval(t, e, `(create-box-field "crate" "/" (vec3 0 0 0) (quat 0 0 0 1) (vec3 2 2 2))`)

	out := eval(t, e, `(distance "/field/crate" "/" (vec3 3 0 0))`)
	if d := parseFloat(t, out); math.Abs(d-2) > 1e-4 {
		t.Errorf("distance before resize = %v, want 2", d)
	}

	eval(t, e, `(set-size "/field/crate" (vec3 4 4 4))`)
	out = eval(t, e, `(distance "/field/crate" "/" (vec3 3 0 0))`)
	if d := parseFloat(t, out); math.Abs(d-1) > 1e-4 {
		t.Errorf("distance after resize = %v, want 1", d)
	}
}

func TestCylinderCreate(t *testing.T) {
	e := newEngine(t)
	eval(t, e, `(create-cylinder-field "pipe" "/" (vec3 0 0 0) (quat 0 0 0 1) 2 1)`)

	// Probe in the region where both axis terms are outside.
	out := eval(t, e, `(distance "/field/pipe" "/" (vec3 3 0 3))`)
	want := math.Sqrt(5)
	if d := parseFloat(t, out); math.Abs(d-want) > 1e-4 {
		t.Errorf("distance = %v, want %v", d, want)
	}
}

func TestSetRadius(t *testing.T) {
	e := newEngine(t)
	eval(t, e, `(create-sphere-field "ball" "/" (vec3 0 0 0) 1)`)
	eval(t, e, `(set-radius "/field/ball" 4)`)
	out := eval(t, e, `(distance "/field/ball" "/" (vec3 10 0 0))`)
	if d := parseFloat(t, out); math.Abs(d-6) > 1e-4 {
		t.Errorf("distance after set-radius = %v, want 6", d)
	}
}

func TestQueryFromCreatedSpatial(t *testing.T) {
	e := newEngine(t)
	eval(t, e, `(create-spatial "/probe" "/" (vec3 10 0 0) (quat 0 0 0 1))`)
	eval(t, e, `(create-sphere-field "ball" "/" (vec3 0 0 0) 5)`)

	// The probe frame is displaced 10 along x, so its origin sits 5
	// outside the sphere.
	out := eval(t, e, `(distance "/field/ball" "/probe" (vec3 0 0 0))`)
	if d := parseFloat(t, out); math.Abs(d-5) > 1e-4 {
		t.Errorf("distance from probe frame = %v, want 5", d)
	}
}

func TestSetTransform(t *testing.T) {
	e := newEngine(t)
	eval(t, e, `(create-sphere-field "ball" "/" (vec3 0 0 0) 5)`)

	eval(t, e, `(set-transform "/field/ball" (vec3 20 0 0) (quat 0 0 0 1))`)
	out := eval(t, e, `(distance "/field/ball" "/" (vec3 0 0 0))`)
	if d := parseFloat(t, out); math.Abs(d-15) > 1e-4 {
		t.Errorf("distance after move = %v, want 15", d)
	}

	// Frames without fields move the same way.
	eval(t, e, `(create-spatial "/probe" "/" (vec3 0 0 0) (quat 0 0 0 1))`)
	eval(t, e, `(set-transform "/probe" (vec3 20 0 0) (quat 0 0 0 1))`)
	out = eval(t, e, `(distance "/field/ball" "/probe" (vec3 0 0 0))`)
	if d := parseFloat(t, out); math.Abs(d-(-5)) > 1e-4 {
		t.Errorf("distance from moved probe = %v, want -5", d)
	}
}

func TestRayMarchFromConsole(t *testing.T) {
	e := newEngine(t)
	eval(t, e, `(create-sphere-field "ball" "/" (vec3 0 0 0) 1)`)
	out := eval(t, e, `(ray-march "/field/ball" "/" (vec3 5 0 0) (vec3 -1 0 0))`)
	if !strings.HasPrefix(out, "(ray-march-result") {
		t.Fatalf("ray-march printed %q", out)
	}
	for _, key := range []string{":distance", ":deepest-point", ":length", ":steps"} {
		if !strings.Contains(out, key) {
			t.Errorf("ray-march result %q missing %s", out, key)
		}
	}
}

func TestComments(t *testing.T) {
	e := newEngine(t)
	eval(t, e, "; a comment line\n(create-sphere-field \"ball\" \"/\" (vec3 0 0 0) 1) ; trailing")
	out := eval(t, e, `(distance "/field/ball" "/" (vec3 2 0 0))`)
	if d := parseFloat(t, out); math.Abs(d-1) > 1e-4 {
		t.Errorf("distance = %v, want 1", d)
	}
}

func TestErrors(t *testing.T) {
	e := newEngine(t)
	eval(t, e, `(create-sphere-field "ball" "/" (vec3 0 0 0) 1)`)

	cases := []struct {
		name   string
		source string
		want   string
	}{
		{"unknown field node", `(distance "/field/ghost" "/" (vec3 0 0 0))`, "does not exist"},
		{"unknown reference", `(distance "/field/ball" "/ghost" (vec3 0 0 0))`, "does not exist"},
		{"wrong arity", `(vec3 1 2)`, "expected 3 arguments"},
		{"wrong type", `(distance "/field/ball" "/" 7)`, "expected vec3"},
		{"duplicate name", `(create-sphere-field "ball" "/" (vec3 0 0 0) 1)`, "already"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Evaluate(tc.source)
			if err == nil {
				t.Fatalf("Evaluate(%q) succeeded, want error", tc.source)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestEvaluateTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the full evaluation timeout")
	}
	e := newEngine(t)

	// Drive the timeout plumbing directly with a channel that never
	// delivers, standing in for a script that never finishes.
	ch := make(chan evalOutcome)
	done := make(chan error, 1)
	go func() {
		_, err := e.waitWithTimeout(ch, 1)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "timed out") {
			t.Errorf("error = %v, want timeout", err)
		}
	case <-time.After(EvalTimeout + 2*time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestEvaluateSuperseded(t *testing.T) {
	e := newEngine(t)
	e.generation = 2

	ch := make(chan evalOutcome, 1)
	ch <- evalOutcome{out: "stale"}
	_, err := e.waitWithTimeout(ch, 1)
	if err == nil || !strings.Contains(err.Error(), "superseded") {
		t.Errorf("error = %v, want superseded", err)
	}
}

func TestPreprocessSource(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`(set-size "/field/x" (vec3 1 2 3))`, `(set_size "/field/x" (vec3 1 2 3))`},
		{`(- 5 3)`, `(- 5 3)`},
		{`(vec3 1 -2 3)`, `(vec3 1 -2 3)`},
		{`"keep-hyphen"`, `"keep-hyphen"`},
		{"; note\n(vec3 1 2 3)", "// note\n(vec3 1 2 3)"},
		{";; set-size here\nx", "// set-size here\nx"},
		{`(closest-point "a-b" "/")`, `(closest_point "a-b" "/")`},
		{`"no end`, `"no end`},
	}
	for _, tc := range cases {
		if got := preprocessSource(tc.in); got != tc.want {
			t.Errorf("preprocessSource(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
