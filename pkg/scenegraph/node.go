package scenegraph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/nlocke/fieldkit/pkg/spatial"
)

// Caller is the remote party on whose behalf a method or signal runs.
// Handlers resolve reference frames against the caller's own scenegraph.
type Caller interface {
	Graph() *Scenegraph
}

// Method handles a remote call on a node. The raw data is the encoded
// positional argument vector; the returned bytes are the encoded result.
type Method func(node *Node, caller Caller, data []byte) ([]byte, error)

// Signal handles a fire-and-forget remote message on a node.
type Signal func(node *Node, caller Caller, data []byte) error

// Field is the distance-field capability a node can carry. All points are
// expressed in the field's own frame; see pkg/field for the kinds and the
// frame-aware query layer.
type Field interface {
	// LocalDistance returns the signed distance from p to the surface:
	// negative inside, zero on the surface, positive outside.
	LocalDistance(p mgl32.Vec3) float32
	// LocalNormal returns the surface normal estimate at p, using epsilon
	// as the finite-difference step where no closed form exists.
	LocalNormal(p mgl32.Vec3, epsilon float32) mgl32.Vec3
	// LocalClosestPoint returns the point on the surface nearest to p.
	LocalClosestPoint(p mgl32.Vec3, epsilon float32) mgl32.Vec3
	// Spatial returns the frame the field's formulas are defined in.
	Spatial() *spatial.Spatial
}

// Node is a single addressable object in a scenegraph. It carries named
// remote-callable methods and signals, plus two set-once slots: a spatial
// frame and a distance field. Both slots are first-writer-wins; later
// writers fail and the slot never changes again.
type Node struct {
	path string

	mu      sync.RWMutex
	methods map[string]Method
	signals map[string]Signal

	spatial atomic.Pointer[spatial.Spatial]
	field   atomic.Pointer[Field]
}

// NewNode creates a detached node with the given absolute path.
// It is not addressable until added to a Scenegraph.
func NewNode(path string) *Node {
	return &Node{
		path:    path,
		methods: make(map[string]Method),
		signals: make(map[string]Signal),
	}
}

// Path returns the node's absolute path.
func (n *Node) Path() string {
	return n.path
}

// AddMethod registers a named remote-callable method on the node.
func (n *Node) AddMethod(name string, m Method) {
	n.mu.Lock()
	n.methods[name] = m
	n.mu.Unlock()
}

// AddSignal registers a named remote signal on the node.
func (n *Node) AddSignal(name string, s Signal) {
	n.mu.Lock()
	n.signals[name] = s
	n.mu.Unlock()
}

// Invoke runs the named method with the encoded argument data.
func (n *Node) Invoke(caller Caller, name string, data []byte) ([]byte, error) {
	n.mu.RLock()
	m := n.methods[name]
	n.mu.RUnlock()
	if m == nil {
		return nil, fmt.Errorf("node %s: %w: %q", n.path, ErrNoSuchMethod, name)
	}
	return m(n, caller, data)
}

// Send runs the named signal with the encoded argument data.
func (n *Node) Send(caller Caller, name string, data []byte) error {
	n.mu.RLock()
	s := n.signals[name]
	n.mu.RUnlock()
	if s == nil {
		return fmt.Errorf("node %s: %w: %q", n.path, ErrNoSuchSignal, name)
	}
	return s(n, caller, data)
}

// SetSpatial installs the node's spatial frame. The slot is set exactly
// once; a second attempt fails and leaves the original frame in place.
func (n *Node) SetSpatial(s *spatial.Spatial) error {
	if s == nil {
		return fmt.Errorf("node %s: nil spatial", n.path)
	}
	if !n.spatial.CompareAndSwap(nil, s) {
		return fmt.Errorf("node %s: %w", n.path, ErrSpatialAlreadySet)
	}
	return nil
}

// Spatial returns the node's spatial frame, or nil if none is attached.
func (n *Node) Spatial() *spatial.Spatial {
	return n.spatial.Load()
}

// SetField installs the node's field. Exactly one writer ever succeeds;
// concurrent or later attempts observe ErrFieldAlreadySet with no side
// effects. A field requires the node to already carry a spatial frame.
func (n *Node) SetField(f Field) error {
	if f == nil {
		return fmt.Errorf("node %s: nil field", n.path)
	}
	if n.Spatial() == nil {
		return fmt.Errorf("node %s: %w", n.path, ErrNoSpatial)
	}
	if !n.field.CompareAndSwap(nil, &f) {
		return fmt.Errorf("node %s: %w", n.path, ErrFieldAlreadySet)
	}
	return nil
}

// Field returns the node's field, or nil if none is attached.
func (n *Node) Field() Field {
	p := n.field.Load()
	if p == nil {
		return nil
	}
	return *p
}
