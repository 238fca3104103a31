package server

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nlocke/fieldkit/pkg/scenegraph"
	"github.com/nlocke/fieldkit/pkg/wire"
)

// Client is one connected session: a websocket connection plus the
// scenegraph all its calls resolve against. It implements
// scenegraph.Caller.
type Client struct {
	id    uuid.UUID
	conn  *websocket.Conn
	graph *scenegraph.Scenegraph
	log   *slog.Logger
}

func newClient(conn *websocket.Conn, log *slog.Logger) (*Client, error) {
	graph := scenegraph.New()
	if err := seedGraph(graph); err != nil {
		return nil, err
	}
	id := uuid.New()
	return &Client{
		id:    id,
		conn:  conn,
		graph: graph,
		log:   log.With("client", id),
	}, nil
}

// ID returns the session's identity.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Graph returns the client's scenegraph.
func (c *Client) Graph() *scenegraph.Scenegraph {
	return c.graph
}

// run reads and dispatches requests until the connection closes.
// Dispatch is synchronous: each call runs to completion before the next
// is read, so a caller's own operations never race each other.
func (c *Client) run() {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				c.log.Debug("read failed", "err", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			c.log.Debug("ignoring non-binary message", "type", msgType)
			continue
		}

		var req Request
		if err := wire.Unmarshal(data, &req); err != nil {
			c.log.Warn("unreadable request", "err", err)
			continue
		}
		if err := c.dispatch(req); err != nil {
			c.log.Debug("write failed", "err", err)
			return
		}
	}
}

// dispatch routes one request. Method failures travel back to the caller
// in the response; signal failures are only logged, matching their
// fire-and-forget contract. The returned error is transport-level only.
func (c *Client) dispatch(req Request) error {
	node := c.graph.Get(req.Path)

	switch req.Type {
	case TypeMethod:
		var resp Response
		resp.ID = req.ID
		if node == nil {
			resp.Error = fmt.Errorf("%q: %w", req.Path, scenegraph.ErrNodeNotFound).Error()
		} else if result, err := node.Invoke(c, req.Method, req.Data); err != nil {
			resp.Error = err.Error()
		} else {
			resp.OK = true
			resp.Result = result
		}
		payload, err := wire.Marshal(resp)
		if err != nil {
			return err
		}
		return c.conn.WriteMessage(websocket.BinaryMessage, payload)

	case TypeSignal:
		if node == nil {
			c.log.Warn("signal to missing node", "path", req.Path, "signal", req.Method)
			return nil
		}
		if err := node.Send(c, req.Method, req.Data); err != nil {
			c.log.Warn("signal failed", "path", req.Path, "signal", req.Method, "err", err)
		}
		return nil

	default:
		c.log.Warn("unknown request type", "type", req.Type)
		return nil
	}
}
