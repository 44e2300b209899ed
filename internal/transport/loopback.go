package transport

import (
	"context"
	"errors"
	"sync"
)

var ErrNotConnected = errors.New("transport: not connected")

type Sent struct {
	Target string
	Text   string
}

// Loopback is an in-memory Transport. Everything sent is recorded; incoming
// traffic is injected with Deliver/Reconnect. Callbacks run synchronously on
// the caller's goroutine.
type Loopback struct {
	nick string

	mu        sync.Mutex
	connected bool
	subs      map[uint64]Handler
	nextSub   uint64
	channels  map[string]bool
	sent      []Sent
	sentCh    chan Sent

	// OnSay вызывается после записи каждого исходящего сообщения, так тесты
	// и replay изображают ответы BanchoBot.
	OnSay func(target, text string)
}

func NewLoopback(nick string) *Loopback {
	return &Loopback{
		nick:     nick,
		subs:     make(map[uint64]Handler),
		channels: make(map[string]bool),
		sentCh:   make(chan Sent, 1024),
	}
}

func (lb *Loopback) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lb.mu.Lock()
	lb.connected = true
	lb.mu.Unlock()
	return nil
}

func (lb *Loopback) Nick() string { return lb.nick }

func (lb *Loopback) Join(channel string) error {
	lb.mu.Lock()
	if !lb.connected {
		lb.mu.Unlock()
		return ErrNotConnected
	}
	lb.channels[channel] = true
	lb.mu.Unlock()

	for _, h := range lb.handlers() {
		if h.OnJoined != nil {
			h.OnJoined(channel, lb.nick)
		}
	}
	return nil
}

func (lb *Loopback) Part(channel string) error {
	lb.mu.Lock()
	if !lb.connected {
		lb.mu.Unlock()
		return ErrNotConnected
	}
	delete(lb.channels, channel)
	lb.mu.Unlock()

	for _, h := range lb.handlers() {
		if h.OnParted != nil {
			h.OnParted(channel, lb.nick)
		}
	}
	return nil
}

func (lb *Loopback) Say(target, text string) error {
	lb.mu.Lock()
	if !lb.connected {
		lb.mu.Unlock()
		return ErrNotConnected
	}
	s := Sent{Target: target, Text: text}
	lb.sent = append(lb.sent, s)
	hook := lb.OnSay
	lb.mu.Unlock()

	select {
	case lb.sentCh <- s:
	default:
	}
	if hook != nil {
		hook(target, text)
	}
	return nil
}

func (lb *Loopback) Subscribe(h Handler) func() {
	lb.mu.Lock()
	id := lb.nextSub
	lb.nextSub++
	lb.subs[id] = h
	lb.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lb.mu.Lock()
			delete(lb.subs, id)
			lb.mu.Unlock()
		})
	}
}

// Deliver injects an incoming message from `from` addressed to target.
func (lb *Loopback) Deliver(from, target, text string) {
	for _, h := range lb.handlers() {
		if h.OnMessage != nil {
			h.OnMessage(from, target, text)
		}
	}
}

// PartedBy reports that nick left channel (for example after "!mp close").
func (lb *Loopback) PartedBy(channel, nick string) {
	if nick == lb.nick {
		lb.mu.Lock()
		delete(lb.channels, channel)
		lb.mu.Unlock()
	}
	for _, h := range lb.handlers() {
		if h.OnParted != nil {
			h.OnParted(channel, nick)
		}
	}
}

func (lb *Loopback) Reconnect() {
	for _, h := range lb.handlers() {
		if h.OnReconnected != nil {
			h.OnReconnected()
		}
	}
}

// Sent returns a copy of everything sent so far.
func (lb *Loopback) Sent() []Sent {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	out := make([]Sent, len(lb.sent))
	copy(out, lb.sent)
	return out
}

// SentCh streams sent messages as they happen; the buffer drops on overflow.
func (lb *Loopback) SentCh() <-chan Sent { return lb.sentCh }

func (lb *Loopback) Subscribers() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return len(lb.subs)
}

func (lb *Loopback) InChannel(channel string) bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.channels[channel]
}

func (lb *Loopback) handlers() []Handler {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	out := make([]Handler, 0, len(lb.subs))
	for _, h := range lb.subs {
		out = append(out, h)
	}
	return out
}
