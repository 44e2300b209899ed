// Package transport describes the chat connection the room core runs on.
//
// Реального IRC-клиента здесь нет: ядро зависит только от интерфейса
// Transport. Loopback: реализация в памяти для тестов и режима replay.
package transport

import (
	"context"
	"strings"
)

// Handler holds the callbacks a subscriber wants. Nil fields are skipped.
//
// Для сообщений в канал target равен имени канала ("#mp_123"), для личных
// равен нику нашего бота.
type Handler struct {
	OnMessage     func(from, target, text string)
	OnJoined      func(channel, nick string)
	OnParted      func(channel, nick string)
	OnReconnected func()
}

type Transport interface {
	Connect(ctx context.Context) error
	// Nick is the account name the transport is logged in as.
	Nick() string
	Join(channel string) error
	Part(channel string) error
	// Say sends text to a channel or to a user.
	Say(target, text string) error
	// Subscribe registers h; the returned func removes it and is safe to call
	// more than once.
	Subscribe(h Handler) (unsubscribe func())
}

// IsChannel reports whether target names a channel rather than a user.
func IsChannel(target string) bool {
	return strings.HasPrefix(target, "#")
}
