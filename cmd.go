package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/chatbot"
	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/conversation"
	"github.com/Zachkp/folio/internal/db"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/mailer"
	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/Zachkp/folio/internal/server"
	"github.com/Zachkp/folio/internal/storage"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "folio",
		Short:         "Personal portfolio site with an FAQ chat assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCmd(), newAskCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the portfolio web server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Print the chat assistant's answer to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
}

// runAsk answers through a throwaway widget so the reply goes through the
// same send and flush path as the site.
func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := conversation.NewWidget(ctx, storage.NewMemoryStore(), chatbot.NewMatcher(chatbot.Default()),
		conversation.Options{}, zerolog.Nop())
	defer w.Unmount()

	if err := w.Send(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	if err := w.Flush(ctx); err != nil {
		return err
	}
	msgs := w.Messages()
	fmt.Fprintln(cmd.OutOrStdout(), msgs[len(msgs)-1].Text)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()
	kv := storage.NewSQLiteStore(database)

	var tracker *analytics.Tracker
	if cfg.TrackVisitors {
		tracker, err = analytics.NewTracker(database, log)
		if err != nil {
			return err
		}
		go cleanupLoop(ctx, tracker, cfg.VisitorRetention, log)
	}

	opts := conversation.Options{
		Delay: conversation.RandomDelay(cfg.ChatTypingBase, cfg.ChatTypingJitter),
	}
	if tracker != nil {
		opts.OnResolve = func(ctx context.Context, topicID string, matched bool) {
			outcome := analytics.OutcomeResolved
			if !matched {
				outcome = analytics.OutcomeFallback
			}
			if err := tracker.RecordLookup(ctx, topicID, outcome); err != nil {
				log.Warn().Err(err).Str("topic", topicID).Msg("recording chat lookup")
			}
		}
	}
	chats, err := conversation.NewRegistry(cfg.ChatMaxSessions, kv, chatbot.NewMatcher(chatbot.Default()), opts, log)
	if err != nil {
		return err
	}
	defer chats.Close()

	m := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		To:       cfg.ToEmail,
	}, log)
	if !cfg.SMTPConfigured() {
		log.Warn().Msg("SMTP credentials missing, contact form submissions will fail")
	}

	adminToken, err := analytics.RandomToken()
	if err != nil {
		return err
	}
	if cfg.AdminPassword == "admin123" {
		log.Warn().Msg("using default admin password, set ADMIN_PASSWORD")
	}

	srv, err := server.New(server.Deps{
		Config:     cfg,
		Log:        log,
		Content:    portfolio.Default(),
		KV:         kv,
		Chats:      chats,
		Mailer:     m,
		Tracker:    tracker,
		AdminToken: adminToken,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("env", cfg.Environment).
		Str("database", database.Path()).
		Bool("track_visitors", cfg.TrackVisitors).
		Msg("starting folio")
	return srv.Run(ctx)
}

// cleanupLoop removes expired visit records once at startup and then daily.
func cleanupLoop(ctx context.Context, tracker *analytics.Tracker, retention time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if _, err := tracker.Cleanup(ctx, retention); err != nil {
			log.Error().Err(err).Msg("cleaning up visitor records")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
