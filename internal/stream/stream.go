// Package stream pushes auction state to dashboards over WebSocket. Clients
// only listen; every committed change is broadcast as a JSON message carrying
// the full snapshot.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/jensholdgaard/auctioneer/internal/auction"
	"github.com/jensholdgaard/auctioneer/internal/catalog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// MessageSnapshot is sent once when a client connects.
const MessageSnapshot = "snapshot"

var errHubClosed = errors.New("stream closed")

// Message is the wire format of every frame sent to clients.
type Message struct {
	Type    string            `json:"type"`
	Version int               `json:"version"`
	Player  *catalog.Player   `json:"player,omitempty"`
	Team    string            `json:"team,omitempty"`
	Points  int               `json:"points,omitempty"`
	State   *auction.Snapshot `json:"state"`
}

// SnapshotSource provides the state a newly connected client starts from.
type SnapshotSource interface {
	Snapshot(ctx context.Context) *auction.Snapshot
}

// frame is an encoded message plus the state version it carries.
type frame struct {
	session string
	version int
	data    []byte
}

type client struct {
	conn *websocket.Conn
	send chan frame
}

// Hub tracks connected clients and fans out auction changes to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	upgrader websocket.Upgrader
	source   SnapshotSource
	logger   *slog.Logger
}

// NewHub returns a Hub that greets clients with source's snapshot.
func NewHub(source SnapshotSource, logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		source: source,
		logger: logger,
	}
}

// AuctionChanged implements auction.Listener. It never blocks: a client whose
// buffer is full is disconnected.
func (h *Hub) AuctionChanged(ctx context.Context, c auction.Change) {
	data, err := json.Marshal(Message{
		Type:    string(c.Type),
		Version: c.Snapshot.Version,
		Player:  c.Player,
		Team:    c.Team,
		Points:  c.Points,
		State:   c.Snapshot,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode stream message", slog.Any("error", err))
		return
	}
	f := frame{session: c.Snapshot.SessionID, version: c.Snapshot.Version, data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- f:
		default:
			h.logger.WarnContext(ctx, "dropping slow stream client")
			h.removeLocked(cl)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		h.removeLocked(cl)
	}
}

func (h *Hub) register(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(cl)
}

func (h *Hub) removeLocked(cl *client) {
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
}

// ServeHTTP upgrades the request and streams until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", slog.Any("error", err))
		return
	}

	// The client is registered before the snapshot is read. writePump skips
	// queued frames the snapshot already covers.
	cl := &client{conn: conn, send: make(chan frame, sendBuffer)}
	if !h.register(cl) {
		closeConn(conn, websocket.CloseGoingAway, "shutting down")
		return
	}
	defer h.unregister(cl)

	snap := h.source.Snapshot(r.Context())
	data, err := json.Marshal(Message{Type: MessageSnapshot, Version: snap.Version, State: snap})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode stream snapshot", slog.Any("error", err))
		closeConn(conn, websocket.CloseInternalServerErr, "snapshot unavailable")
		return
	}
	hello := frame{session: snap.SessionID, version: snap.Version, data: data}

	g, ctx := errgroup.WithContext(context.WithoutCancel(r.Context()))
	g.Go(func() error { return cl.writePump(ctx, hello) })
	g.Go(cl.readPump)
	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})

	if err := g.Wait(); !errors.Is(err, errHubClosed) && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		h.logger.DebugContext(r.Context(), "stream client disconnected", slog.Any("error", err))
	}
}

func closeConn(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	_ = conn.Close()
}

// readPump drains client frames so control messages are processed. It always
// returns a non-nil error, which stops the other pumps.
func (c *client) readPump() error {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return err
		}
	}
}

// writePump sends hello first, then every queued change newer than it.
func (c *client) writePump(ctx context.Context, hello frame) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, hello.data); err != nil {
		return err
	}

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return errHubClosed
			}
			if f.session == hello.session && f.version <= hello.version {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, f.data); err != nil {
				return err
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
