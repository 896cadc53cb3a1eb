package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/svgstudio/server/internal/config"
	"github.com/svgstudio/server/internal/handler"
	"github.com/svgstudio/server/internal/service/broadcast"
	"github.com/svgstudio/server/internal/service/session"
	"github.com/svgstudio/server/internal/service/suggest"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	hub := broadcast.NewHub()
	store := session.NewStore(session.Config{
		DefaultWidth:  cfg.Canvas.DefaultWidth,
		DefaultHeight: cfg.Canvas.DefaultHeight,
		PromptLimit:   cfg.Canvas.PromptLimit,
	}, hub)

	// The suggestion planner uses the Ark chat model when credentials
	// are present; otherwise prompts go through keyword heuristics.
	var chatModel model.ChatModel
	if cfg.AI.Enabled() && cfg.Suggest.LLMEnabled {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
			chatModel = nil
		}
	}

	suggestSvc, err := suggest.NewService(ctx, chatModel, store, suggest.Config{
		Enabled: cfg.Suggest.LLMEnabled,
	})
	if err != nil {
		log.Printf("warning: failed to initialize suggestion service: %v", err)
		suggestSvc = nil
	} else if suggestSvc.Enabled() {
		log.Println("Suggestion planner enabled")
	} else if cfg.Suggest.LLMEnabled {
		log.Println("Suggestion planner requested but chat model unavailable, falling back to heuristics")
	} else {
		log.Println("Suggestion planner using keyword heuristics")
	}

	router := handler.NewRouter(store, suggestSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("SVG Studio server listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
