package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/bombastic-viewer/internal/api"
	"github.com/DoyleJ11/bombastic-viewer/internal/config"
	"github.com/DoyleJ11/bombastic-viewer/internal/framestore"
	"github.com/DoyleJ11/bombastic-viewer/internal/logging"
	"github.com/DoyleJ11/bombastic-viewer/internal/render/termui"
	"github.com/DoyleJ11/bombastic-viewer/internal/session"
	"github.com/DoyleJ11/bombastic-viewer/internal/symbols"
	"github.com/DoyleJ11/bombastic-viewer/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bombastic:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogFile, cfg.Debug)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	client, err := api.NewClient(cfg.Server, &http.Client{})
	if err != nil {
		return err
	}

	// Build the runner *with* the bootstrap strategy matching the transport
	var bootstrap session.Bootstrap
	var newTransport func(uid string) transport.Transport
	switch cfg.Mode {
	case config.ModePoll:
		bootstrap = session.AlwaysCreate{Joiner: client, Name: cfg.PlayerName, Log: log}
		newTransport = func(uid string) transport.Transport {
			return transport.NewPoll(client, uid, cfg.PollInterval, cfg.PollView, log.Named("poll"))
		}
	case config.ModePush:
		loc := session.NewFileLocation(cfg.SessionFile, cfg.Server)
		bootstrap = session.ResumeFromAddress{Joiner: client, Name: cfg.PlayerName, Location: loc, Log: log}
		wsURL := transport.PushURL(client.BaseURL(), cfg.PushPort)
		newTransport = func(uid string) transport.Transport {
			return transport.NewPush(client, wsURL, uid, cfg.Retry, log.Named("push"))
		}
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	surface, err := termui.Open()
	if err != nil {
		return err
	}
	defer surface.Close()

	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()
	keys, quit := termui.Keys(ctx)

	var uid string
	runner := &session.Runner{
		Bootstrap:    bootstrap,
		NewTransport: newTransport,
		Store:        framestore.New(symbols.NewResolver(cfg.AssetPrefix, nil), log.Named("frames")),
		Surface:      surface,
		Keys:         keys,
		Log:          log,
		OnReady:      func(id string) { uid = id },
	}

	log.Info("starting viewer", zap.String("server", cfg.Server), zap.String("mode", string(cfg.Mode)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error {
		select {
		case <-quit:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	err = g.Wait()

	if cfg.LeaveOnQuit && uid != "" {
		leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer leaveCancel()
		if lerr := client.DeletePlayer(leaveCtx, uid); lerr != nil {
			log.Warn("leave failed", zap.Error(lerr))
		}
	}
	return err
}
