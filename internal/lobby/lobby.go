// Package lobby keeps the authoritative model of one multiplayer room,
// rebuilt from BanchoBot's chat lines.
//
// Всё состояние комнаты меняется только на одной горутине (run). Колбэки
// транспорта и таймеров кладут замыкания в почтовый ящик; внешний код
// попадает туда через Do. Методы Lobby, кроме Do/Post/Subscribe/Shutdown/Done,
// вызываются только с этой горутины: из обработчиков событий или внутри Do.
//
// Жизненный цикл:
//
//	l := lobby.New(ctx, tr, lobby.Options{})
//	_ = l.Do(func() { err = l.EnterRoom("#mp_123") })
//	l.Subscribe(func(ev lobby.Event) { ... })
//	<-l.Done()
package lobby

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Meowhal/osu-ahr-sub001/internal/bancho"
	"github.com/Meowhal/osu-ahr-sub001/internal/deferred"
	"github.com/Meowhal/osu-ahr-sub001/internal/transport"
)

var (
	ErrRoomClosed          = errors.New("lobby: room closed")
	ErrBadStatus           = errors.New("lobby: operation not allowed in current status")
	ErrNotMember           = errors.New("lobby: player is not in the room")
	ErrAnotherHost         = errors.New("lobby: another player became host")
	ErrTargetLeft          = errors.New("lobby: transfer target left the room")
	ErrTransferUnconfirmed = errors.New("lobby: host transfer was not confirmed")
	ErrStatusTimeout       = errors.New("lobby: status request timed out")
)

type Status int

const (
	StatusStandby Status = iota
	StatusMaking
	StatusEntering
	StatusEntered
	StatusLeaving
	StatusLeft
)

func (s Status) String() string {
	switch s {
	case StatusMaking:
		return "Making"
	case StatusEntering:
		return "Entering"
	case StatusEntered:
		return "Entered"
	case StatusLeaving:
		return "Leaving"
	case StatusLeft:
		return "Left"
	default:
		return "Standby"
	}
}

type Options struct {
	// HostTransferTimeout: сколько ждать "X became the host." после !mp host,
	// прежде чем запросить !mp settings.
	HostTransferTimeout time.Duration
	// SettingsCooldown is the minimum gap between two "!mp settings".
	SettingsCooldown time.Duration
	// SettingsTimeout after which an unanswered or cut short dump is
	// requested again.
	SettingsTimeout time.Duration
	// SettingsAttempts bounds the sends per dump. After the last one pending
	// transfers fail with ErrTransferUnconfirmed and LoadSettings yields nil.
	SettingsAttempts int
	// RefListWindow is how long unmarked lines after "Match referees:" are
	// read as referee names.
	RefListWindow time.Duration
	// StatusTimeout is used by RequestStatus when the caller passes 0.
	StatusTimeout time.Duration
	// Authorized names get RoleAuthorized.
	Authorized []string
	Logger     *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.HostTransferTimeout <= 0 {
		o.HostTransferTimeout = 5 * time.Second
	}
	if o.SettingsCooldown <= 0 {
		o.SettingsCooldown = 15 * time.Second
	}
	if o.SettingsTimeout <= 0 {
		o.SettingsTimeout = 10 * time.Second
	}
	if o.SettingsAttempts <= 0 {
		o.SettingsAttempts = 3
	}
	if o.RefListWindow <= 0 {
		o.RefListWindow = time.Second
	}
	if o.StatusTimeout <= 0 {
		o.StatusTimeout = 5 * time.Second
	}
	return o
}

const settingsTag = "mp_settings"

type Lobby struct {
	tr      transport.Transport
	opts    Options
	log     zerolog.Logger
	session string

	box  *mailbox
	done chan struct{}

	status    Status
	channel   string
	roomID    int
	roomName  string
	makeTitle string

	roster *roster
	active map[PlayerID]struct{}
	host   PlayerID

	hostPending      PlayerID
	hostWaiters      []chan error
	transferTimer    *deferred.Action[PlayerID]
	transferTimedOut bool

	matching         bool
	startTimerActive bool
	beatmapID        int
	beatmapTitle     string

	cooldowns map[string]time.Time
	deferreds map[string]*deferred.Action[string]

	roomParser        *bancho.RoomSnapshotParser
	statParser        *bancho.StatusBlockParser
	settingsPending   bool
	settingsRequested time.Time
	settingsAttempts  int
	settingsRetry     *deferred.Action[struct{}]
	settingsExpiry    *deferred.Action[struct{}]
	settingsWaiters   []chan *bancho.RoomSnapshot

	refsUntil time.Time

	statusWaiters map[string][]*statusWaiter

	handlers    []subscription
	nextHandler int
	unsubscribe func()
}

type subscription struct {
	id int
	fn func(Event)
}

// New attaches a room to tr and starts the room goroutine. Cancelling ctx
// tears the room down without parting the channel.
func New(ctx context.Context, tr transport.Transport, opts Options) *Lobby {
	opts = opts.withDefaults()
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}
	session := uuid.NewString()

	l := &Lobby{
		tr:            tr,
		opts:          opts,
		session:       session,
		log:           base.With().Str("module", "lobby").Str("session", session).Logger(),
		box:           newMailbox(),
		done:          make(chan struct{}),
		roster:        newRoster(),
		active:        make(map[PlayerID]struct{}),
		host:          NoPlayer,
		hostPending:   NoPlayer,
		cooldowns:     make(map[string]time.Time),
		deferreds:     make(map[string]*deferred.Action[string]),
		roomParser:    bancho.NewRoomSnapshotParser(),
		statParser:    bancho.NewStatusBlockParser(),
		statusWaiters: make(map[string][]*statusWaiter),
	}
	l.transferTimer = deferred.New(l.onTransferTimeout, deferred.WithDispatcher[PlayerID](l.dispatch))
	l.settingsRetry = deferred.New(func(struct{}) { l.requestSettings() }, deferred.WithDispatcher[struct{}](l.dispatch))
	l.settingsExpiry = deferred.New(l.onSettingsTimeout, deferred.WithDispatcher[struct{}](l.dispatch))

	for _, name := range opts.Authorized {
		id := l.roster.getOrCreate(name)
		l.roster.get(id).Roles |= RoleAuthorized
	}

	l.unsubscribe = tr.Subscribe(transport.Handler{
		OnMessage: func(from, target, text string) {
			l.Post(func() { l.onMessage(from, target, text) })
		},
		OnJoined: func(channel, nick string) {
			l.Post(func() { l.onJoined(channel, nick) })
		},
		OnParted: func(channel, nick string) {
			l.Post(func() { l.onParted(channel, nick) })
		},
		OnReconnected: func() {
			l.Post(l.onReconnected)
		},
	})

	go l.run(ctx)
	return l
}

func (l *Lobby) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			l.teardown("context canceled")
			l.box.close()
			return
		case <-l.box.signal:
			for _, fn := range l.box.take() {
				fn()
				if l.status == StatusLeft {
					l.box.close()
					return
				}
			}
		}
	}
}

// Post queues fn on the room goroutine. It reports false once the room is gone.
func (l *Lobby) Post(fn func()) bool { return l.box.push(fn) }

func (l *Lobby) dispatch(fn func()) { l.box.push(fn) }

// Do runs fn on the room goroutine and waits for it. Never call Do from an
// event handler: it would wait for itself.
func (l *Lobby) Do(fn func()) error {
	finished := make(chan struct{})
	if !l.box.push(func() { fn(); close(finished) }) {
		return ErrRoomClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrRoomClosed
		}
	}
}

// Done is closed when the room goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Shutdown tears the room down without parting the channel and waits for the
// room goroutine to exit.
func (l *Lobby) Shutdown() {
	l.Post(func() { l.teardown("shutdown") })
	<-l.done
}

// Subscribe registers fn for every domain event. Safe from any goroutine.
func (l *Lobby) Subscribe(fn func(Event)) (unsubscribe func()) {
	var id int
	if err := l.Do(func() {
		id = l.nextHandler
		l.nextHandler++
		l.handlers = append(l.handlers, subscription{id: id, fn: fn})
	}); err != nil {
		return func() {}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.Post(func() { l.removeHandler(id) })
		})
	}
}

// OnEvent is Subscribe for code already running on the room goroutine.
func (l *Lobby) OnEvent(fn func(Event)) {
	l.handlers = append(l.handlers, subscription{id: l.nextHandler, fn: fn})
	l.nextHandler++
}

func (l *Lobby) removeHandler(id int) {
	for i, h := range l.handlers {
		if h.id == id {
			l.handlers = append(l.handlers[:i:i], l.handlers[i+1:]...)
			return
		}
	}
}

func (l *Lobby) emit(ev Event) {
	hs := make([]subscription, len(l.handlers))
	copy(hs, l.handlers)
	for _, h := range hs {
		h.fn(ev)
	}
}

// ---------- lifecycle ----------

// MakeRoom asks BanchoBot to create a room titled title. The room is entered
// once the "Created the tournament match" reply arrives.
func (l *Lobby) MakeRoom(title string) error {
	if l.status != StatusStandby {
		return ErrBadStatus
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("lobby: empty room title")
	}
	l.status = StatusMaking
	l.makeTitle = title
	l.log.Info().Str("title", title).Msg("making room")
	if err := l.tr.Say(bancho.BotName, "!mp make "+title); err != nil {
		l.status = StatusStandby
		return err
	}
	return nil
}

// EnterRoom joins an existing room channel ("#mp_123" or "123").
func (l *Lobby) EnterRoom(channel string) error {
	if l.status != StatusStandby {
		return ErrBadStatus
	}
	ch, id, err := parseChannel(channel)
	if err != nil {
		return err
	}
	l.status = StatusEntering
	l.setChannel(ch, id)
	l.log.Info().Msg("entering room")
	return l.tr.Join(ch)
}

// CloseRoom sends "!mp close"; the room is torn down when the transport
// reports that we were parted.
func (l *Lobby) CloseRoom() error {
	if l.status != StatusEntered {
		return ErrBadStatus
	}
	l.SendMessage("!mp close")
	l.status = StatusLeaving
	return nil
}

// QuitRoom leaves the channel without closing the room.
func (l *Lobby) QuitRoom() error {
	if l.status != StatusEntered {
		return ErrBadStatus
	}
	l.status = StatusLeaving
	return l.tr.Part(l.channel)
}

func parseChannel(channel string) (string, int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(channel), "#")
	s = strings.TrimPrefix(s, "mp_")
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return "", 0, errors.New("lobby: invalid room channel " + strconv.Quote(channel))
	}
	return "#mp_" + strconv.Itoa(id), id, nil
}

func (l *Lobby) setChannel(ch string, id int) {
	l.channel = ch
	l.roomID = id
	l.log = l.log.With().Str("channel", ch).Logger()
}

func (l *Lobby) onJoined(channel, nick string) {
	if nick != l.tr.Nick() || channel != l.channel {
		return
	}
	if l.status != StatusMaking && l.status != StatusEntering {
		return
	}
	created := l.status == StatusMaking
	l.status = StatusEntered
	if created {
		me := l.roster.getOrCreate(l.tr.Nick())
		l.roster.get(me).Roles |= RoleCreator
	}
	l.log.Info().Bool("created", created).Msg("joined room")
	l.emit(JoinedRoom{Channel: l.channel, RoomID: l.roomID, Created: created})
	if !created {
		// в чужой комнате состояние неизвестно, сразу берём снимок
		l.requestSettings()
	}
}

func (l *Lobby) onParted(channel, nick string) {
	if nick != l.tr.Nick() || channel != l.channel {
		return
	}
	l.teardown("parted")
}

func (l *Lobby) onReconnected() {
	if l.status != StatusEntered {
		return
	}
	l.log.Info().Msg("transport reconnected, rejoining")
	if err := l.tr.Join(l.channel); err != nil {
		l.log.Error().Err(err).Msg("rejoin failed")
		return
	}
	// пока соединения не было, строки могли потеряться
	l.requestSettings()
}

// teardown runs at most once: unsubscribes from the transport, stops every
// timer and fails every pending future.
func (l *Lobby) teardown(reason string) {
	if l.status == StatusLeft {
		return
	}
	l.status = StatusLeft
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}

	l.transferTimer.Cancel()
	l.settingsRetry.Cancel()
	l.settingsExpiry.Cancel()
	for _, a := range l.deferreds {
		a.Cancel()
	}
	for key, ws := range l.statusWaiters {
		for _, w := range ws {
			w.timer.Cancel()
			w.ch <- StatusResult{Player: w.id, Err: ErrRoomClosed}
		}
		delete(l.statusWaiters, key)
	}
	l.resolveTransfer(ErrRoomClosed)
	l.resolveSettings(nil)

	l.log.Info().Str("reason", reason).Msg("left room")
	l.emit(LeftChannel{Channel: l.channel, Reason: reason})
}

// ---------- read side ----------

func (l *Lobby) Status() Status   { return l.status }
func (l *Lobby) Channel() string  { return l.channel }
func (l *Lobby) RoomID() int      { return l.roomID }
func (l *Lobby) RoomName() string { return l.roomName }
func (l *Lobby) Session() string  { return l.session }
func (l *Lobby) Matching() bool   { return l.matching }
func (l *Lobby) Host() PlayerID   { return l.host }

// StartTimerActive reports whether a "!mp start N" countdown is running.
func (l *Lobby) StartTimerActive() bool { return l.startTimerActive }

// HostPending is the target of an in-flight transfer, NoPlayer otherwise.
func (l *Lobby) HostPending() PlayerID { return l.hostPending }

func (l *Lobby) Beatmap() (int, string) { return l.beatmapID, l.beatmapTitle }

// GetOrCreate returns the single identity for name, creating it on first use.
func (l *Lobby) GetOrCreate(name string) PlayerID { return l.roster.getOrCreate(name) }

func (l *Lobby) Find(name string) (PlayerID, bool) { return l.roster.find(name) }

func (l *Lobby) Player(id PlayerID) (Player, bool) {
	p := l.roster.get(id)
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

// SetProfile attaches collaborator data (web API profile) to an identity.
func (l *Lobby) SetProfile(id PlayerID, profile any) {
	if p := l.roster.get(id); p != nil {
		p.Profile = profile
	}
}

func (l *Lobby) IsMember(id PlayerID) bool {
	_, ok := l.active[id]
	return ok
}

// Players returns the active members ordered by slot.
func (l *Lobby) Players() []Player {
	out := make([]Player, 0, len(l.active))
	for _, id := range l.activeIDs() {
		out = append(out, *l.roster.get(id))
	}
	return out
}

func (l *Lobby) PlayerCount() int { return len(l.active) }

// KnownPlayers is the size of the identity arena.
func (l *Lobby) KnownPlayers() int { return l.roster.len() }

func (l *Lobby) CountFinished() int { return l.countStatus(MatchStatusFinished) }
func (l *Lobby) CountPlaying() int  { return l.countStatus(MatchStatusPlaying) }
func (l *Lobby) CountInLobby() int  { return l.countStatus(MatchStatusInLobby) }

func (l *Lobby) countStatus(s MatchStatus) int {
	n := 0
	for id := range l.active {
		if l.roster.get(id).Status == s {
			n++
		}
	}
	return n
}

// mailbox is an unbounded FIFO of closures with a wake-up signal, so that
// transport callbacks never block on a busy room.
type mailbox struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) push(fn func()) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

func (m *mailbox) take() []func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
}
