package scenegraph

import (
	"errors"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/nlocke/fieldkit/pkg/spatial"
)

// stubField is a minimal Field for slot tests.
type stubField struct {
	space *spatial.Spatial
	id    int
}

func (f *stubField) LocalDistance(p mgl32.Vec3) float32                   { return p.Len() }
func (f *stubField) LocalNormal(p mgl32.Vec3, _ float32) mgl32.Vec3       { return p.Normalize() }
func (f *stubField) LocalClosestPoint(p mgl32.Vec3, _ float32) mgl32.Vec3 { return mgl32.Vec3{} }
func (f *stubField) Spatial() *spatial.Spatial                            { return f.space }

type stubCaller struct {
	graph *Scenegraph
}

func (c *stubCaller) Graph() *Scenegraph { return c.graph }

func TestAddGetRemove(t *testing.T) {
	g := New()
	n := NewNode("/thing")
	if err := g.Add(n); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if g.Get("/thing") != n {
		t.Error("Get returned wrong node")
	}
	if g.Get("/missing") != nil {
		t.Error("Get of missing path should be nil")
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", g.NodeCount())
	}

	if err := g.Add(NewNode("/thing")); !errors.Is(err, ErrDuplicatePath) {
		t.Errorf("duplicate Add error = %v, want ErrDuplicatePath", err)
	}

	g.Remove("/thing")
	if g.Get("/thing") != nil {
		t.Error("node still present after Remove")
	}
}

func TestSpatialSlotSetOnce(t *testing.T) {
	n := NewNode("/a")
	first := spatial.New(nil, mgl32.Ident4())
	if err := n.SetSpatial(first); err != nil {
		t.Fatalf("first SetSpatial: %v", err)
	}
	err := n.SetSpatial(spatial.New(nil, mgl32.Ident4()))
	if !errors.Is(err, ErrSpatialAlreadySet) {
		t.Errorf("second SetSpatial error = %v, want ErrSpatialAlreadySet", err)
	}
	if n.Spatial() != first {
		t.Error("spatial slot changed after failed second set")
	}
}

func TestFieldSlotRequiresSpatial(t *testing.T) {
	n := NewNode("/a")
	err := n.SetField(&stubField{})
	if !errors.Is(err, ErrNoSpatial) {
		t.Errorf("SetField without spatial error = %v, want ErrNoSpatial", err)
	}
	if n.Field() != nil {
		t.Error("field slot populated despite failed set")
	}
}

func TestFieldSlotSetOnce(t *testing.T) {
	n := NewNode("/a")
	if err := n.SetSpatial(spatial.New(nil, mgl32.Ident4())); err != nil {
		t.Fatal(err)
	}
	first := &stubField{id: 1}
	if err := n.SetField(first); err != nil {
		t.Fatalf("first SetField: %v", err)
	}
	err := n.SetField(&stubField{id: 2})
	if !errors.Is(err, ErrFieldAlreadySet) {
		t.Errorf("second SetField error = %v, want ErrFieldAlreadySet", err)
	}
	if n.Field() != Field(first) {
		t.Error("field slot changed after failed second set")
	}
}

// Exactly one of many concurrent attachers may win the field slot.
func TestFieldSlotConcurrentAttach(t *testing.T) {
	n := NewNode("/a")
	if err := n.SetSpatial(spatial.New(nil, mgl32.Ident4())); err != nil {
		t.Fatal(err)
	}

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan int, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := n.SetField(&stubField{id: id}); err == nil {
				wins <- id
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for id := range wins {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("winners = %v, want exactly one", winners)
	}
	got := n.Field().(*stubField)
	if got.id != winners[0] {
		t.Errorf("installed field id = %d, want winner %d", got.id, winners[0])
	}
}

func TestMethodDispatch(t *testing.T) {
	g := New()
	caller := &stubCaller{graph: g}
	n := NewNode("/a")

	n.AddMethod("echo", func(node *Node, c Caller, data []byte) ([]byte, error) {
		return data, nil
	})

	out, err := n.Invoke(caller, "echo", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(out) != 3 || out[0] != 1 {
		t.Errorf("echo result = %v", out)
	}

	if _, err := n.Invoke(caller, "nope", nil); !errors.Is(err, ErrNoSuchMethod) {
		t.Errorf("unknown method error = %v, want ErrNoSuchMethod", err)
	}
}

func TestSignalDispatch(t *testing.T) {
	g := New()
	caller := &stubCaller{graph: g}
	n := NewNode("/a")

	var got []byte
	n.AddSignal("poke", func(node *Node, c Caller, data []byte) error {
		got = append([]byte(nil), data...)
		return nil
	})

	if err := n.Send(caller, "poke", []byte{9}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(got) != 1 || got[0] != 9 {
		t.Errorf("signal payload = %v, want [9]", got)
	}

	if err := n.Send(caller, "nope", nil); !errors.Is(err, ErrNoSuchSignal) {
		t.Errorf("unknown signal error = %v, want ErrNoSuchSignal", err)
	}
}
