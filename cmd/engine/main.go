package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kestrelmd/matchbook/internal/bus"
	"github.com/kestrelmd/matchbook/internal/config"
	"github.com/kestrelmd/matchbook/internal/dispatch"
	"github.com/kestrelmd/matchbook/internal/feed"
	"github.com/kestrelmd/matchbook/internal/manager"
	"github.com/kestrelmd/matchbook/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional; defaults are used otherwise)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	bookManager := manager.New()

	hub := feed.NewHub()
	bookManager.SetListeners(hub.OnTrade, hub.OnPriceLevelChanged)

	var reg *metrics.Registry
	var dispatchMetrics dispatch.Metrics
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		dispatchMetrics = reg
	}

	d := dispatch.New(bookManager, dispatchMetrics, cfg.Dispatcher.ChannelCapacity)
	d.Start()

	if cfg.Metrics.Enabled {
		go sampleBookDepth(ctx, reg, bookManager)
		go serveMetrics(cfg, reg)
	}

	go serveFeed(cfg, hub)

	source := &bus.TCPSource{Address: cfg.Bus.Address, Port: cfg.Bus.Port}
	go func() {
		if err := source.Run(ctx, d.Commands()); err != nil {
			log.Error().Err(err).Msg("bus source exited")
			d.Kill(err)
		}
	}()

	log.Info().Msg("engine running")
	<-ctx.Done()

	log.Info().Msg("engine shutting down")
	if err := d.Stop(); err != nil {
		log.Error().Err(err).Msg("dispatcher did not stop cleanly")
	}
}

func serveFeed(cfg config.Config, hub *feed.Hub) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Feed.Path, hub)
	addr := cfg.Feed.Address + ":" + strconv.Itoa(cfg.Feed.Port)
	log.Info().Str("address", addr).Msg("feed listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("feed server exited")
	}
}

func serveMetrics(cfg config.Config, reg *metrics.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))
	addr := cfg.Metrics.Address + ":" + strconv.Itoa(cfg.Metrics.Port)
	log.Info().Str("address", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server exited")
	}
}

func sampleBookDepth(ctx context.Context, reg *metrics.Registry, m *manager.BookManager) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.SampleBookDepth(m)
		}
	}
}
