package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relayforge/realtime/internal/auth"
	"github.com/relayforge/realtime/internal/config"
	"github.com/relayforge/realtime/internal/demo"
	"github.com/relayforge/realtime/internal/gateway"
	"github.com/relayforge/realtime/internal/router"
	"github.com/relayforge/realtime/internal/session"
	"github.com/relayforge/realtime/internal/source"
	"github.com/relayforge/realtime/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	demoMode := flag.Bool("demo", false, "Publish synthetic events")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	store := session.NewStore()
	hub := ws.NewHub(cfg.Gateway.SendBufferSize)
	verifier := auth.NewTokenRegistry(cfg.Auth.Tokens)
	src := source.NewMemory(cfg.Gateway.EventQueueSize)
	bridge := gateway.NewBridge(store, src)
	controller := gateway.NewController(store, hub, verifier, bridge)
	stats := gateway.NewStats(store, hub)
	rt := router.New(store, hub, src.Notifications())

	server := ws.NewServer(hub, controller, stats, rt, cfg.Server.AllowedOrigins, cfg.Gateway.ReadLimit)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt.Start(ctx)

	if *demoMode {
		log.Println("Starting demo event feed")
		gen := demo.NewGenerator(src, time.Second)
		go gen.Start(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux)
	})
	g.Go(func() error {
		select {
		case <-sigCh:
		case <-gctx.Done():
			return gctx.Err()
		}
		log.Println("Shutting down...")

		controller.Maintenance("server going down for maintenance")

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		rt.Stop(stopCtx)
		src.Close()
		cancel()
		os.Exit(0)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
