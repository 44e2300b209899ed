// Package feed streams room events to websocket observers.
//
// Кадр: structpb.Struct. По умолчанию уходит бинарным protobuf
// (BinaryMessage), с ?format=json уходит текстом через protojson.
package feed

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrClosed = errors.New("feed: hub closed")

const (
	writeWait  = 5 * time.Second
	pingPeriod = 10 * time.Second
	outboxSize = 64
)

type Options struct {
	// PingPeriod defaults to 10s; the read deadline is three periods.
	PingPeriod time.Duration
	Logger     *zerolog.Logger
}

// Hub fans frames out to every connected observer.
type Hub struct {
	upgrader   websocket.Upgrader
	pingPeriod time.Duration
	log        zerolog.Logger

	mu     sync.Mutex
	peers  map[string]*peer
	closed bool
}

type peer struct {
	id   string
	json bool
	conn *websocket.Conn
	out  chan []byte

	wmu  sync.Mutex
	once sync.Once
	stop chan struct{}
}

func NewHub(opts Options) *Hub {
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = pingPeriod
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingPeriod: opts.PingPeriod,
		log:        base.With().Str("module", "feed").Logger(),
		peers:      make(map[string]*peer),
	}
}

// Peers returns the number of connected observers.
func (h *Hub) Peers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Publish encodes frame once per wire format and queues it for every peer.
// A peer whose queue is full loses the frame.
func (h *Hub) Publish(frame *structpb.Struct) error {
	if frame == nil {
		return nil
	}
	bin, err := proto.Marshal(frame)
	if err != nil {
		return err
	}
	txt, err := protojson.Marshal(frame)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for _, p := range h.peers {
		data := bin
		if p.json {
			data = txt
		}
		select {
		case p.out <- data:
		default:
			h.log.Warn().Str("peer", p.id).Msg("outbox full, frame dropped")
		}
	}
	return nil
}

// ServeHTTP upgrades the request and serves one observer until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("upgrade failed")
		return
	}
	p := &peer{
		id:   uuid.NewString(),
		json: r.URL.Query().Get("format") == "json",
		conn: conn,
		out:  make(chan []byte, outboxSize),
		stop: make(chan struct{}),
	}
	if !h.add(p) {
		h.closePeer(p)
		return
	}
	h.log.Info().Str("peer", p.id).Bool("json", p.json).Msg("observer connected")

	hello, _ := structpb.NewStruct(map[string]any{"type": "Hello", "peer": p.id})
	if data, err := h.encode(p, hello); err == nil {
		p.out <- data
	}

	go h.writeLoop(p)
	h.readLoop(p)

	h.remove(p)
	h.closePeer(p)
	h.log.Info().Str("peer", p.id).Msg("observer disconnected")
}

func (h *Hub) encode(p *peer, frame *structpb.Struct) ([]byte, error) {
	if p.json {
		return protojson.Marshal(frame)
	}
	return proto.Marshal(frame)
}

// readLoop only keeps the connection alive: observers never send commands.
func (h *Hub) readLoop(p *peer) {
	wait := 3 * h.pingPeriod
	p.conn.SetReadLimit(4096)
	_ = p.conn.SetReadDeadline(time.Now().Add(wait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(p *peer) {
	t := time.NewTicker(h.pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-p.stop:
			return
		case data := <-p.out:
			mt := websocket.BinaryMessage
			if p.json {
				mt = websocket.TextMessage
			}
			if err := p.write(mt, data); err != nil {
				h.log.Debug().Err(err).Str("peer", p.id).Msg("write failed")
				_ = p.conn.Close()
				return
			}
		case <-t.C:
			p.wmu.Lock()
			err := p.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
			p.wmu.Unlock()
			if err != nil {
				_ = p.conn.Close()
				return
			}
		}
	}
}

func (p *peer) write(mt int, data []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(mt, data)
}

func (h *Hub) add(p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.peers[p.id] = p
	return true
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	delete(h.peers, p.id)
	h.mu.Unlock()
}

func (h *Hub) closePeer(p *peer) {
	p.once.Do(func() {
		close(p.stop)
		p.wmu.Lock()
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
			time.Now().Add(500*time.Millisecond))
		p.wmu.Unlock()
		_ = p.conn.Close()
	})
}

// Close disconnects every observer and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	peers := make([]*peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()
	for _, p := range peers {
		h.closePeer(p)
	}
}
