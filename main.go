package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/trackfix-data/trackfix/internal/api"
	"github.com/trackfix-data/trackfix/internal/session"
	"github.com/trackfix-data/trackfix/internal/timeutil"
	"github.com/trackfix-data/trackfix/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS

	devMode    = flag.Bool("dev", false, "Serve static files from ./static instead of the embedded copy")
	listen     = flag.String("listen", ":8080", "Listen address")
	sessionTTL = flag.Duration("session-ttl", 0, "Evict sessions idle longer than this (0 disables eviction)")
)

// evictorInterval is how often the janitor sweeps idle sessions.
const evictorInterval = time.Minute

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("trackfix %s (%s) starting on %s", version.Version, version.GitSHA, *listen)

	registry := session.NewRegistry(timeutil.RealClock{}, *sessionTTL)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *sessionTTL > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.RunEvictor(ctx, evictorInterval)
			log.Print("evictor routine terminated")
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// the api mux registers fully qualified /api/... patterns
		apiMux := api.NewServer(registry).ServeMux()
		mux.Handle("/api/", apiMux)

		// read static files from the embedded filesystem in production or
		// from the local ./static in dev for easier iteration without
		// restarting the server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			sub, err := fs.Sub(staticFiles, "static")
			if err != nil {
				log.Fatalf("failed to mount embedded static files: %v", err)
			}
			staticHandler = http.FileServer(http.FS(sub))
		}
		mux.Handle("/", staticHandler)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
