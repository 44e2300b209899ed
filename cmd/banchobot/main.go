package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Meowhal/osu-ahr-sub001/internal/bot"
	"github.com/Meowhal/osu-ahr-sub001/internal/config"
	"github.com/Meowhal/osu-ahr-sub001/internal/feed"
	"github.com/Meowhal/osu-ahr-sub001/internal/lobby"
	"github.com/Meowhal/osu-ahr-sub001/internal/transport"
)

func main() {
	confPath := flag.String("config", "conf/banchobot.json", "path to the bot config")
	replay := flag.String("replay", "", "chat log to feed through the loopback transport")
	interval := flag.Duration("replay-interval", 200*time.Millisecond, "pause between replayed lines")
	feedAddr := flag.String("feed", "", "websocket feed address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*confPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *confPath).Msg("config")
	}
	if *feedAddr != "" {
		cfg.FeedAddr = *feedAddr
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr := transport.NewLoopback(cfg.Nick)
	hub := feed.NewHub(feed.Options{})

	b := bot.New(tr, cfg)
	b.SetFeed(hub)
	b.SetLogger(log.Logger)
	if err := b.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start")
	}
	defer b.Stop()

	srv := &http.Server{Addr: cfg.FeedAddr, Handler: hub, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.FeedAddr).Msg("feed listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-b.Done():
			log.Info().Msg("room is gone, shutting down")
		}
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if *replay != "" {
		g.Go(func() error { return runReplay(gctx, tr, b.Lobby(), *replay, *interval) })
	} else {
		// пока нет IRC-клиента, без replay бот только ждёт
		log.Warn().Msg("no chat transport wired; use -replay to feed a chat log")
	}

	log.Info().Msg("running… press Ctrl+C to stop")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("stopped")
	}
}

func runReplay(ctx context.Context, tr *transport.Loopback, lb *lobby.Lobby, path string, interval time.Duration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// до входа в комнату BanchoBot пишет боту в личку
	target := func() string {
		var ch string
		_ = lb.Do(func() {
			if s := lb.Status(); s == lobby.StatusEntered || s == lobby.StatusLeaving {
				ch = lb.Channel()
			}
		})
		return ch
	}
	n, err := tr.Replay(ctx, f, target, interval)
	log.Info().Int("lines", n).Str("path", path).Msg("replay finished")
	return err
}
