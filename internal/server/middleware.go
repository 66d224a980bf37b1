package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Zachkp/folio/internal/metrics"
	"github.com/Zachkp/folio/internal/storage"
)

const (
	sessionCookie = "folio_session"
	sessionKey    = "session_id"
	sessionMaxAge = 365 * 24 * 3600
)

// sessionMiddleware gives every visitor an anonymous session id.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err == nil {
			_, err = uuid.Parse(id)
		}
		if err != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, id, sessionMaxAge, "/", "", s.cfg.IsProduction(), true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// sessionStore scopes storage to the request's session.
func (s *Server) sessionStore(c *gin.Context) storage.Store {
	return storage.WithPrefix(s.kv, storage.SessionPrefix(sessionID(c)))
}

// visitorTrackingMiddleware records page views with hashed IP addresses.
func (s *Server) visitorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !trackable(c.Request.Method, path) || c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		ip, ua := c.ClientIP(), c.GetHeader("User-Agent")
		s.tracking.Add(1)
		go func() {
			defer s.tracking.Done()
			if err := s.tracker.RecordVisit(context.Background(), ip, ua, path); err != nil {
				s.log.Error().Err(err).Msg("recording visitor")
			}
		}()
		c.Next()
	}
}

func trackable(method, path string) bool {
	if method != http.MethodGet {
		return false
	}
	for _, prefix := range []string{"/static/", "/images/", "/admin/", "/favicon", "/privacy", "/chat", "/api/", "/metrics", "/healthz"} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
