// Package server exposes scenegraphs to remote callers over a websocket
// transport. Each connection gets its own client session with its own
// scenegraph, pre-seeded with the field-creation interface; messages are
// msgpack-framed requests addressed to node paths.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/nlocke/fieldkit/pkg/field"
	"github.com/nlocke/fieldkit/pkg/scenegraph"
	"github.com/nlocke/fieldkit/pkg/spatial"
)

// Request is one remote call. Type selects dispatch: "method" calls expect
// a Response, "signal" sends are fire-and-forget.
type Request struct {
	ID     uint64 `codec:"id"`
	Type   string `codec:"type"`
	Path   string `codec:"path"`
	Method string `codec:"method"`
	Data   []byte `codec:"data"`
}

// Response answers a method Request. Exactly one of Result or Error is
// meaningful, selected by OK.
type Response struct {
	ID     uint64 `codec:"id"`
	OK     bool   `codec:"ok"`
	Result []byte `codec:"result"`
	Error  string `codec:"error"`
}

// Request types.
const (
	TypeMethod = "method"
	TypeSignal = "signal"
)

// Server accepts websocket connections and runs one client session per
// connection. The zero value is not usable; call New.
type Server struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a Server. A nil logger disables logging.
func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{log: log}
}

// ServeHTTP upgrades the connection and runs the session until the peer
// disconnects. Implements http.Handler so the server can be mounted on
// any mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	client, err := newClient(conn, s.log)
	if err != nil {
		s.log.Error("client setup failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	s.log.Info("client connected", "client", client.ID(), "remote", r.RemoteAddr)
	client.run()
	s.log.Info("client disconnected", "client", client.ID())
}

// ListenAndServe serves websocket sessions on addr until the listener
// fails.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, s); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// seedGraph installs the well-known nodes every fresh client scenegraph
// starts with: the field-creation interface and a root frame at "/" that
// serves as the default parent and reference.
func seedGraph(g *scenegraph.Scenegraph) error {
	if err := field.CreateInterface(g); err != nil {
		return err
	}
	root := scenegraph.NewNode("/")
	if err := root.SetSpatial(spatial.New(nil, mgl32.Ident4())); err != nil {
		return err
	}
	field.AddSpatialSignals(root)
	return g.Add(root)
}
