// Package scenegraph provides the path-addressed node registry and the
// per-node method/signal dispatch used by remote callers. Nodes carry
// set-once spatial and field slots; the registry itself knows nothing
// about what the slots contain.
package scenegraph

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors surfaced by node and registry operations.
var (
	ErrNodeNotFound      = errors.New("node does not exist")
	ErrDuplicatePath     = errors.New("node path already registered")
	ErrNoSuchMethod      = errors.New("no such method")
	ErrNoSuchSignal      = errors.New("no such signal")
	ErrNoSpatial         = errors.New("node does not have a spatial attached")
	ErrSpatialAlreadySet = errors.New("node already has a spatial attached")
	ErrFieldAlreadySet   = errors.New("node already has a field attached")
)

// Scenegraph is a flat path-indexed registry of nodes. Each connected
// client owns one.
type Scenegraph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// New creates an empty scenegraph.
func New() *Scenegraph {
	return &Scenegraph{nodes: make(map[string]*Node)}
}

// Add registers a node under its path. Fails if the path is taken.
func (g *Scenegraph) Add(n *Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[n.path]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicatePath, n.path)
	}
	g.nodes[n.path] = n
	return nil
}

// Get returns the node at the given path, or nil.
func (g *Scenegraph) Get(path string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[path]
}

// Remove deletes the node at the given path, if present.
func (g *Scenegraph) Remove(path string) {
	g.mu.Lock()
	delete(g.nodes, path)
	g.mu.Unlock()
}

// NodeCount returns the number of registered nodes.
func (g *Scenegraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
