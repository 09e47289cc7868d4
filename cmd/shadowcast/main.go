// Shadowcast is a language-practice daemon: it streams generated practice
// texts, translations and explanations from a chat model and narrates them
// sentence by sentence through a text-to-speech backend.
//
// Usage:
//
//	shadowcast [flags]
//	shadowcast --config /path/to/shadowcast.yaml
//	shadowcast [flags] practice --target fr --native en --difficulty 2
//
// @title       shadowcast API
// @version     1.0
// @description Local language-practice daemon: streamed content generation, translation and explanation sessions, and ordered narration on the local audio output.
// @BasePath    /
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nadzzz/shadowcast/internal/audio"
	"github.com/nadzzz/shadowcast/internal/config"
	"github.com/nadzzz/shadowcast/internal/health"
	"github.com/nadzzz/shadowcast/internal/practice"
	"github.com/nadzzz/shadowcast/internal/provider/registry"
	"github.com/nadzzz/shadowcast/internal/transport"
	grpctransport "github.com/nadzzz/shadowcast/internal/transport/grpc"
	httptransport "github.com/nadzzz/shadowcast/internal/transport/http"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/shadowcast.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("shadowcast %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, player, err := newService(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize providers", "error", err)
		os.Exit(1)
	}
	defer player.Stop()

	switch flag.Arg(0) {
	case "":
		err = serve(ctx, cfg, svc)
	case "practice":
		err = runPractice(ctx, svc, flag.Args()[1:])
	default:
		err = fmt.Errorf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		slog.Error("shadowcast failed", "error", err)
		os.Exit(1)
	}
}

// newService resolves the configured providers and audio output.
func newService(ctx context.Context, cfg *config.Config) (*practice.Service, *audio.Player, error) {
	chat, err := registry.NewChat(cfg)
	if err != nil {
		return nil, nil, err
	}
	speech, err := registry.NewSpeech(cfg)
	if err != nil {
		return nil, nil, err
	}

	var device audio.Device = audio.DiscardDevice{}
	if cfg.Player.Backend == "exec" {
		d, err := audio.NewExecDevice(cfg.Player.Command)
		if err != nil {
			return nil, nil, fmt.Errorf("audio device: %w", err)
		}
		device = d
	}
	player := audio.NewPlayer(device)

	slog.Info("providers ready",
		"chat", chat.Name(),
		"speech", speech.Name(),
		"player", cfg.Player.Backend)
	return practice.New(ctx, cfg, chat, speech, player), player, nil
}

// serve runs the daemon until the context is cancelled.
func serve(ctx context.Context, cfg *config.Config, svc *practice.Service) error {
	slog.Info("shadowcast starting", "version", version)

	// Initialize enabled transports.
	var transports []transport.Transport
	var grpcTransport *grpctransport.Transport

	if cfg.Transports.GRPC.Enabled {
		grpcTransport = grpctransport.New(cfg.Transports.GRPC.Port)
		transports = append(transports, grpcTransport)
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, svc))
	}

	if len(transports) == 0 {
		return fmt.Errorf("no transports enabled, enable at least one in config")
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	if grpcTransport != nil {
		grpcTransport.SetServing(true)
	}
	slog.Info("shadowcast ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	svc.Narrator().StopCurrent()

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("shadowcast stopped")
	return nil
}
