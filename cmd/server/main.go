package main

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/gridplane/gridplane/internal/asset"
	"github.com/gridplane/gridplane/internal/auth"
	"github.com/gridplane/gridplane/internal/config"
	"github.com/gridplane/gridplane/internal/export"
	mw "github.com/gridplane/gridplane/internal/middleware"
	"github.com/gridplane/gridplane/internal/samples"
	"github.com/gridplane/gridplane/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := asset.NewStore(cfg.AssetDir)
	if err != nil {
		slog.Error("open asset store", "error", err)
		os.Exit(1)
	}

	// The images sample shows the globe as an asset so browsers can fetch it.
	globe, err := storeGlobe(store)
	if err != nil {
		slog.Error("store sample picture", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.JWTSecret, cfg.SessionTTL)

	hub := session.NewHub(session.Config{
		Width:         cfg.CanvasWidth,
		Height:        cfg.CanvasHeight,
		FrameRate:     cfg.FrameRate,
		Delta:         cfg.SampleDelta,
		SamplePicture: globe,
		Pictures:      store.Picture,
		Logger:        slog.Default(),
	}, cfg.SessionTTL)
	go hub.Run(ctx)

	sessionHandler := session.NewHandler(hub, authService, cfg.OriginHosts())
	assetHandler := asset.NewHandler(store)
	exportHandler := export.NewHandler(
		export.Renderer{Width: cfg.CanvasWidth, Height: cfg.CanvasHeight, Delta: cfg.SampleDelta, Picture: globe},
		export.Encoder{FfmpegPath: cfg.FfmpegPath},
	)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, hub.Len())
	}).Methods("GET")

	// Asset endpoints
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Export endpoint
	r.HandleFunc("/export/video", exportHandler.ExportVideo).Methods("POST", "OPTIONS")

	// Public session routes
	r.HandleFunc("/api/samples", sessionHandler.Samples).Methods("GET")
	r.HandleFunc("/api/sessions", sessionHandler.Create).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/join", sessionHandler.Join).Methods("POST")

	// Token-protected session routes
	api := r.PathPrefix("/api/sessions/{sessionId}").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("", sessionHandler.Get).Methods("GET")
	api.HandleFunc("", sessionHandler.Delete).Methods("DELETE")
	api.HandleFunc("/frame", sessionHandler.Frame).Methods("GET")
	api.HandleFunc("/snapshot.png", sessionHandler.Snapshot).Methods("GET")

	// WebSocket endpoint, token in the query string
	ws := r.PathPrefix("/ws/session/{sessionId}").Subrouter()
	ws.Use(authService.AuthMiddleware)
	ws.HandleFunc("", sessionHandler.WebSocket)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()
		if err := store.Delete(globe.AssetID()); err != nil {
			slog.Warn("remove sample picture", "error", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "canvas", fmt.Sprintf("%dx%d", cfg.CanvasWidth, cfg.CanvasHeight))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func storeGlobe(store *asset.Store) (*asset.Picture, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, samples.Globe(256)); err != nil {
		return nil, err
	}
	return store.Put(&buf)
}
