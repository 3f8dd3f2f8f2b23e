package main

import (
	"context"
	stdlog "log"
	"log/slog"
	"os"

	"github.com/klipach/connectsphere/ai"
	"github.com/klipach/connectsphere/auth"
	"github.com/klipach/connectsphere/banner"
	"github.com/klipach/connectsphere/chat"
	"github.com/klipach/connectsphere/config"
	"github.com/klipach/connectsphere/discover"
	"github.com/klipach/connectsphere/feed"
	"github.com/klipach/connectsphere/log"
	"github.com/klipach/connectsphere/session"
	"github.com/klipach/connectsphere/store"
	"github.com/klipach/connectsphere/ui"
)

func main() {
	ctx := context.Background()
	logger := slog.New(log.NewStructuredHandlerTo(os.Stderr))
	ctx = log.WithLogger(ctx, logger)

	cfg, err := config.FromEnv()
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}

	st, err := store.NewFirestoreStore(ctx, cfg.ProjectID)
	if err != nil {
		stdlog.Fatalf("firestore: %v", err)
	}
	defer st.Close()

	model, err := ai.New(cfg.ModelAPIKey, cfg.Model, cfg.ModelBaseURL)
	if err != nil {
		stdlog.Fatalf("model client: %v", err)
	}

	b := banner.New()
	authClient := auth.NewClient(cfg.FirebaseAPIKey)

	controller := session.New(authClient, st, b)
	controller.Run(ctx)

	app := ui.New(
		controller,
		feed.New(st, b, model),
		discover.New(st, b),
		chat.New(st, b, model),
		b,
		os.Stdin,
		os.Stdout,
	)
	if err := app.Run(ctx); err != nil {
		stdlog.Fatalf("ui: %v", err)
	}
}
