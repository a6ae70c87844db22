// Package stream broadcasts animation frames to websocket clients.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/san-kum/pixi/internal/animation"
)

const (
	DefaultQueueSize = 16

	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Particle is the wire form of one particle.
type Particle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Radius float64 `json:"r"`
	Color  string  `json:"color"`
}

// Message is sent for every streamed repaint and on every clear.
type Message struct {
	Type      string     `json:"type"`
	Tick      uint64     `json:"tick,omitempty"`
	Step      int        `json:"step,omitempty"`
	Time      float64    `json:"time,omitempty"`
	Rate      float64    `json:"rate,omitempty"`
	Extent    [3]float64 `json:"extent"`
	Particles []Particle `json:"particles,omitempty"`
}

const (
	TypeFrame = "frame"
	TypeClear = "clear"
)

type Config struct {
	// QueueSize bounds the frames waiting for each client. A client whose
	// queue is full misses frames.
	QueueSize int
	// Every streams one repaint out of Every.
	Every  int
	Logger *slog.Logger
}

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	dropped uint64
}

type change struct {
	c   *client
	add bool
}

// Hub is an animation observer and an http.Handler. Clients connect over
// websocket and receive every frame as JSON. Connections are registered from
// HTTP goroutines and take effect at the next repaint or clear.
type Hub struct {
	upgrader websocket.Upgrader
	queue    int
	every    int
	log      *slog.Logger

	mu      sync.Mutex
	pending []change

	// Owned by the animation goroutine.
	clients map[*client]struct{}
	seen    uint64

	connected atomic.Int64
	dropped   atomic.Uint64
}

var _ animation.Observer = (*Hub)(nil)

func NewHub(cfg Config) *Hub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		queue:   cfg.QueueSize,
		every:   max(cfg.Every, 1),
		log:     cfg.Logger,
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of open connections.
func (h *Hub) Clients() int { return int(h.connected.Load()) }

// Dropped returns the number of frames discarded for slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.pending = append(h.pending, change{c: c, add: true})
	h.mu.Unlock()
	h.connected.Add(1)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	h.pending = append(h.pending, change{c: c})
	h.mu.Unlock()
	h.connected.Add(-1)
}

func (h *Hub) apply() {
	h.mu.Lock()
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, ch := range pending {
		if ch.add {
			h.clients[ch.c] = struct{}{}
		} else {
			delete(h.clients, ch.c)
		}
	}
}

func (h *Hub) Repaint(f animation.Frame) {
	h.apply()
	h.seen++
	if h.seen%uint64(h.every) != 0 || len(h.clients) == 0 {
		return
	}
	h.broadcast(frameMessage(f))
}

func (h *Hub) Clear() {
	h.apply()
	h.seen = 0
	if len(h.clients) == 0 {
		return
	}
	h.broadcast(Message{Type: TypeClear})
}

func (h *Hub) broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.log.Error("encoding frame", "err", err)
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			c.dropped++
			h.dropped.Add(1)
		}
	}
}

func frameMessage(f animation.Frame) Message {
	ext := f.Sim.Extent()
	ps := f.Sim.Particles()
	m := Message{
		Type:      TypeFrame,
		Tick:      f.Tick,
		Step:      f.Sim.Steps(),
		Time:      f.Sim.Time(),
		Rate:      f.Rate,
		Extent:    [3]float64(ext),
		Particles: make([]Particle, len(ps)),
	}
	for i, p := range ps {
		m.Particles[i] = Particle{
			X:      p.Pos.X(),
			Y:      p.Pos.Y(),
			Z:      p.Pos.Z(),
			Radius: p.Radius,
			Color:  fmt.Sprintf("#%02x%02x%02x", p.Color.R, p.Color.G, p.Color.B),
		}
	}
	return m
}

// ServeHTTP upgrades the request and streams frames until the client goes
// away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.queue),
		done: make(chan struct{}),
	}
	h.register(c)
	h.log.Info("client connected", "client", c.id, "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)

	h.unregister(c)
	close(c.done)
	h.log.Info("client disconnected", "client", c.id)
}

// readPump discards client messages and returns when the connection fails.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("client read failed", "client", c.id, "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug("client write failed", "client", c.id, "err", err)
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
