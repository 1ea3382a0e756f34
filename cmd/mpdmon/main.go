package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/mpdmon/backend/internal/config"
	"github.com/mpdmon/backend/internal/mock"
	"github.com/mpdmon/backend/internal/monitor"
	"github.com/mpdmon/backend/internal/player"
	"github.com/mpdmon/backend/internal/ws"
)

// source is what the monitor polls: a real server or the simulated player.
type source interface {
	monitor.StatusSource
	monitor.OutputSource
	monitor.ConnectionProbe
}

func main() {
	mockMode := flag.Bool("mock", false, "Simulate a player instead of connecting to MPD")
	configPath := flag.StringP("config", "c", "config.yaml", "Path to config file")
	mpdHost := flag.String("mpd-host", "", "MPD host, [password@]host or socket path (overrides config)")
	mpdPort := flag.Int("mpd-port", 0, "MPD port (overrides config)")
	mpdPassword := flag.String("mpd-password", "", "MPD password (overrides config)")
	port := flag.IntP("port", "p", 0, "Override server port")
	pollInterval := flag.Duration("poll-interval", 0, "Override poll interval")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.OverrideMPD(*mpdHost, *mpdPort, *mpdPassword); err != nil {
		log.Fatalf("Invalid MPD flags: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *pollInterval > 0 {
		cfg.Monitor.PollInterval = *pollInterval
	}

	if err := serve(cfg, *mockMode); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func serve(cfg *config.Config, mockMode bool) error {
	var src source
	if mockMode {
		log.Println("Starting in mock mode")
		src = mock.NewPlayer(mock.Options{Seed: time.Now().UnixNano(), Outages: true})
	} else {
		log.Printf("Monitoring MPD at %s (%s)", cfg.MPD.Address, cfg.MPD.Network)
		mpdSrc := monitor.NewMPDSource(cfg.MPD.Network, cfg.MPD.Address, cfg.MPD.Password)
		defer mpdSrc.Close()
		src = mpdSrc
	}

	store := player.NewStore()

	broadcaster := ws.NewBroadcaster(store, cfg.Broadcast.Throttle, cfg.Broadcast.SnapshotInterval, cfg.Broadcast.MaxConnections)
	defer broadcaster.Stop()

	mon := monitor.NewMonitor(cfg.Monitor, src, src, src)
	if !mockMode && monitor.IsLocalAddress(cfg.MPD.Network, cfg.MPD.Address) {
		mon.SetLocalServerCheck(monitor.LocalServerRunning)
	}
	mon.OnPrime(func(s monitor.StatusSnapshot, outputs []monitor.Output) {
		store.Seed(s.PlayerState(), s.Volume, outputs)
	})
	mon.AddListener(store)
	mon.AddListener(broadcaster)
	broadcaster.SetHealthSource(mon.Health)

	server := ws.NewServer(cfg.Server, store, broadcaster, mon)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mon.Start(ctx)

	err := ws.ListenAndServe(ctx, cfg.Server.Host, cfg.Server.Port, server.Handler())

	log.Println("Shutting down...")
	mon.Stop()
	if done := mon.Done(); done != nil {
		<-done
	}
	return err
}
