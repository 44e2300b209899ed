package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Meowhal/osu-ahr-sub001/internal/bancho"
	"github.com/Meowhal/osu-ahr-sub001/internal/config"
	"github.com/Meowhal/osu-ahr-sub001/internal/feed"
	"github.com/Meowhal/osu-ahr-sub001/internal/lobby"
	"github.com/Meowhal/osu-ahr-sub001/internal/transport"
)

type RoomBot struct {
	tr   transport.Transport
	cfg  config.Config
	feed *feed.Hub
	lb   *lobby.Lobby
	log  zerolog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// чтобы не дёргать re-init слишком часто при серии быстрых реконнектов
	reinitMu   sync.Mutex
	lastReinit time.Time
}

func New(tr transport.Transport, cfg config.Config) *RoomBot {
	return &RoomBot{
		tr:  tr,
		cfg: cfg,
		log: log.Logger.With().Str("module", "bot").Logger(),
	}
}

// SetFeed publishes every room event to h.
func (bot *RoomBot) SetFeed(h *feed.Hub) { bot.feed = h }

func (bot *RoomBot) SetLogger(l zerolog.Logger) {
	bot.log = l.With().Str("module", "bot").Logger()
}

// Lobby is nil before Start.
func (bot *RoomBot) Lobby() *lobby.Lobby { return bot.lb }

func (bot *RoomBot) lobbyOptions() lobby.Options {
	lg := bot.log
	return lobby.Options{
		HostTransferTimeout: bot.cfg.Lobby.HostTransferTimeout.Std(),
		SettingsCooldown:    bot.cfg.Lobby.SettingsCooldown.Std(),
		SettingsTimeout:     bot.cfg.Lobby.SettingsTimeout.Std(),
		SettingsAttempts:    bot.cfg.Lobby.SettingsAttempts,
		StatusTimeout:       bot.cfg.Lobby.StatusTimeout.Std(),
		Authorized:          bot.cfg.Owners,
		Logger:              &lg,
	}
}

// Start connects the transport, attaches the room and enters cfg.Channel, or
// makes a new room titled cfg.MakeTitle.
func (bot *RoomBot) Start(ctx context.Context) error {
	if bot == nil {
		return errors.New("bot: not initialized")
	}
	bot.mu.Lock()
	if bot.stopCh != nil {
		bot.mu.Unlock()
		return errors.New("bot: already started")
	}
	stop := make(chan struct{})
	bot.stopCh = stop
	bot.mu.Unlock()

	if err := bot.tr.Connect(ctx); err != nil {
		bot.resetStop()
		return fmt.Errorf("bot: connect: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	bot.lb = lobby.New(ctx, bot.tr, bot.lobbyOptions())
	bot.lb.Subscribe(bot.onEvent)

	unsub := bot.tr.Subscribe(transport.Handler{
		// после любого переподключения перечитываем состояние комнаты
		OnReconnected: func() {
			bot.mu.Lock()
			defer bot.mu.Unlock()
			if bot.stopCh == nil {
				return
			}
			bot.wg.Add(1)
			go func() {
				defer bot.wg.Done()
				bot.reinitRoom()
			}()
		},
	})

	var err error
	if derr := bot.lb.Do(func() {
		if bot.cfg.Channel != "" {
			err = bot.lb.EnterRoom(bot.cfg.Channel)
		} else {
			err = bot.lb.MakeRoom(bot.cfg.MakeTitle)
		}
	}); derr != nil {
		err = derr
	}
	if err != nil {
		unsub()
		cancel()
		bot.resetStop()
		return err
	}

	// сторож для остановки
	bot.wg.Add(1)
	go func() {
		defer bot.wg.Done()
		select {
		case <-stop:
			bot.lb.Shutdown()
		case <-bot.lb.Done():
		}
		unsub()
		cancel()
	}()
	return nil
}

func (bot *RoomBot) Stop() {
	bot.mu.Lock()
	ch := bot.stopCh
	bot.stopCh = nil
	bot.mu.Unlock()

	if ch != nil {
		close(ch)
		bot.wg.Wait()
	}
}

func (bot *RoomBot) resetStop() {
	bot.mu.Lock()
	bot.stopCh = nil
	bot.mu.Unlock()
}

// Done is closed once the room is gone.
func (bot *RoomBot) Done() <-chan struct{} {
	if bot.lb == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return bot.lb.Done()
}

// onEvent runs on the room goroutine.
func (bot *RoomBot) onEvent(ev lobby.Event) {
	if bot.feed != nil {
		frame, err := feed.Frame(bot.lb.Channel(), ev)
		switch {
		case err != nil:
			bot.log.Error().Err(err).Msg("feed frame")
		case frame != nil:
			frame.Fields["session"] = structpb.NewStringValue(bot.lb.Session())
			if err := bot.feed.Publish(frame); err != nil && !errors.Is(err, feed.ErrClosed) {
				bot.log.Error().Err(err).Msg("feed publish")
			}
		}
	}

	switch e := ev.(type) {
	case lobby.ChatCommand:
		if err := bot.HandleCommand(e); err != nil {
			bot.lb.SendMessage(fmt.Sprintf("err: %v", err))
		}
	case lobby.JoinedRoom:
		bot.log.Info().Str("channel", e.Channel).Bool("created", e.Created).Msg("room ready")
	case lobby.UnexpectedAction:
		bot.log.Debug().Str("reason", e.Reason).Msg("room diverged")
	case lobby.LeftChannel:
		bot.log.Info().Str("reason", e.Reason).Msg("room closed")
	}
}

// reinitRoom reloads the room snapshot after a reconnect.
func (bot *RoomBot) reinitRoom() {
	// антидребезг: серия OnReconnected подряд сворачивается в один вызов
	delay := bot.cfg.ReinitDelay.Std()
	if delay <= 0 {
		delay = 2 * time.Second
	}
	bot.reinitMu.Lock()
	if time.Since(bot.lastReinit) < delay {
		bot.reinitMu.Unlock()
		return
	}
	bot.lastReinit = time.Now()
	bot.reinitMu.Unlock()

	var ch <-chan *bancho.RoomSnapshot
	if err := bot.lb.Do(func() { ch = bot.lb.LoadSettings() }); err != nil {
		bot.log.Debug().Err(err).Msg("reconnect resync dropped")
		return
	}
	snap := <-ch
	if snap == nil {
		bot.log.Debug().Msg("reconnect resync dropped")
		return
	}
	bot.log.Info().Int("players", len(snap.Players)).Msg("room resynced after reconnect")
}
