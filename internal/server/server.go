package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/conversation"
	"github.com/Zachkp/folio/internal/mailer"
	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/Zachkp/folio/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Config  *config.Config
	Log     zerolog.Logger
	Content *portfolio.Content
	KV      storage.Store
	Chats   *conversation.Registry
	Mailer  *mailer.Mailer
	// Tracker may be nil when visitor tracking is disabled.
	Tracker    *analytics.Tracker
	AdminToken string
}

// Server wraps the gin engine with graceful shutdown helpers.
type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	log        zerolog.Logger
	content    *portfolio.Content
	kv         storage.Store
	chats      *conversation.Registry
	mailer     *mailer.Mailer
	tracker    *analytics.Tracker
	adminToken string
	// tracking counts visit writes still running in the background.
	tracking sync.WaitGroup
}

// New constructs the server with middleware, templates and routes.
func New(d Deps) (*Server, error) {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.AdminToken == "" {
		return nil, errors.New("admin token is required")
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		cfg:        d.Config,
		log:        d.Log.With().Str("component", "http").Logger(),
		content:    d.Content,
		kv:         d.KV,
		chats:      d.Chats,
		mailer:     d.Mailer,
		tracker:    d.Tracker,
		adminToken: d.AdminToken,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), metricsMiddleware())
	engine.SetHTMLTemplate(tmpl)
	s.engine = engine

	s.registerRoutes()
	return s, nil
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.Static("/images", s.cfg.ImagesDir)
	r.Static("/static", s.cfg.StaticDir)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	site := r.Group("/")
	site.Use(s.sessionMiddleware())
	if s.tracker != nil {
		site.Use(s.visitorTrackingMiddleware())
	}

	s.registerPageRoutes(site)
	s.registerChatRoutes(site)
	s.registerAdminRoutes(r)
}

// Run starts the HTTP listener and shuts down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("portfolio listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		s.tracking.Wait()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.tracking.Wait()
	return err
}

var templateFuncs = template.FuncMap{
	"markdown": portfolio.Markdown,
	"clock": func(t time.Time) string {
		return t.Local().Format("15:04")
	},
	"datetime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04")
	},
	"percent": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	},
}
