// Package console provides a sandboxed Lisp console for driving a
// scenegraph interactively: creating fields, mutating their parameters,
// and running proximity queries and ray marches. It wraps zygomys; each
// evaluation runs in a fresh sandboxed environment against the engine's
// long-lived scenegraph.
package console

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/nlocke/fieldkit/pkg/field"
	"github.com/nlocke/fieldkit/pkg/scenegraph"
	"github.com/nlocke/fieldkit/pkg/spatial"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// Engine owns a scenegraph and evaluates console source against it.
// It implements scenegraph.Caller, so console commands resolve node
// references exactly the way a remote client's calls do. Safe for
// concurrent use; the scenegraph carries its own locking.
type Engine struct {
	graph *scenegraph.Scenegraph

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an engine with a fresh scenegraph, seeded with the
// field-creation interface and a root frame at "/" that scripts can use
// as a parent and reference.
func NewEngine() (*Engine, error) {
	g := scenegraph.New()
	if err := field.CreateInterface(g); err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	root := scenegraph.NewNode("/")
	if err := root.SetSpatial(spatial.New(nil, mgl32.Ident4())); err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	field.AddSpatialSignals(root)
	if err := g.Add(root); err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	return &Engine{graph: g}, nil
}

// Graph returns the engine's scenegraph.
func (e *Engine) Graph() *scenegraph.Scenegraph {
	return e.graph
}

// evalOutcome carries an evaluation's result through the timeout channel.
type evalOutcome struct {
	out string
	err error
}

// Evaluate runs console source in a fresh sandbox and returns the printed
// form of the final expression. Kebab-case identifiers are accepted and
// rewritten to the underscore form zygomys requires. A runaway script is
// abandoned after EvalTimeout; its goroutine may still finish later, and
// the generation counter discards that stale result.
func (e *Engine) Evaluate(source string) (string, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalOutcome{err: fmt.Errorf("console: panic during evaluation: %v", r)}
			}
		}()
		out, err := e.evaluate(source)
		ch <- evalOutcome{out: out, err: err}
	}()

	return e.waitWithTimeout(ch, gen)
}

// waitWithTimeout waits for a result from ch, giving up after
// EvalTimeout. A result arriving for a superseded generation is
// discarded rather than returned out of order.
func (e *Engine) waitWithTimeout(ch <-chan evalOutcome, gen uint64) (string, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()
		if gen != current {
			return "", fmt.Errorf("console: evaluation superseded by newer request")
		}
		return res.out, res.err

	case <-timer.C:
		return "", fmt.Errorf("console: evaluation timed out after %s", EvalTimeout)
	}
}

// evaluate runs the source in a fresh sandboxed environment.
func (e *Engine) evaluate(source string) (string, error) {
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, e)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return "", fmt.Errorf("console: %w", err)
	}
	result, err := env.Run()
	if err != nil {
		return "", fmt.Errorf("console: %w", err)
	}
	if result == nil {
		return "", nil
	}
	return result.SexpString(nil), nil
}

// preprocessSource rewrites console syntax for zygomys: kebab-case
// identifiers become underscore form (zygomys reads a hyphen as
// subtraction) and ; line comments become // comments. String literals
// and comment bodies pass through untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"':
			end := stringEnd(b, i)
			out = append(out, b[i:end]...)
			i = end
		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			end := len(b)
			if nl := bytes.IndexByte(b[i:], '\n'); nl >= 0 {
				end = i + nl
			}
			out = append(out, b[i:end]...)
			i = end
		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// stringEnd returns the index one past the string literal opening at i,
// honoring backslash escapes. An unterminated literal runs to the end.
func stringEnd(b []byte, i int) int {
	for i++; i < len(b); i++ {
		switch b[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(b)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
