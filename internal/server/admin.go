package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const adminCookie = "admin_token"

// adminAuthMiddleware checks the admin cookie against the per-process token.
func (s *Server) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) clientHash(c *gin.Context) string {
	if s.tracker == nil {
		return "untracked"
	}
	return s.tracker.HashIP(c.ClientIP())
}

func equalSecret(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerAdminRoutes(r *gin.Engine) {
	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		if equalSecret(username, s.cfg.AdminUsername) && equalSecret(password, s.cfg.AdminPassword) {
			c.SetCookie(adminCookie, s.adminToken, 3600*24, "/admin", "", s.cfg.IsProduction(), true)
			s.log.Info().Str("client", s.clientHash(c)).Msg("admin login successful")
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}

		s.log.Warn().Str("client", s.clientHash(c)).Msg("failed admin login attempt")
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", s.cfg.IsProduction(), true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin")
	admin.Use(s.adminAuthMiddleware())

	admin.GET("/dashboard", func(c *gin.Context) {
		if s.tracker == nil {
			c.HTML(http.StatusOK, "admin-error.html", gin.H{"error": "Visitor tracking is disabled"})
			return
		}
		stats, err := s.tracker.Stats(c.Request.Context())
		if err != nil {
			s.log.Error().Err(err).Msg("loading admin stats")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":   stats,
			"widgets": s.chats.Len(),
		})
	})

	admin.GET("/visitors", func(c *gin.Context) {
		if s.tracker == nil {
			c.HTML(http.StatusOK, "admin-error.html", gin.H{"error": "Visitor tracking is disabled"})
			return
		}
		visitors, err := s.tracker.RecentVisitors(c.Request.Context(), 200)
		if err != nil {
			s.log.Error().Err(err).Msg("loading visitors")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load visitors"})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{"visitors": visitors})
	})

	admin.GET("/api/stats", func(c *gin.Context) {
		if s.tracker == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "visitor tracking is disabled"})
			return
		}
		stats, err := s.tracker.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	admin.GET("/export/stats", func(c *gin.Context) {
		if s.tracker == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "visitor tracking is disabled"})
			return
		}
		stats, err := s.tracker.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		s.log.Info().Str("client", s.clientHash(c)).Msg("admin stats exported")
		c.JSON(http.StatusOK, stats)
	})

	admin.POST("/privacy/cleanup", func(c *gin.Context) {
		if s.tracker == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "visitor tracking is disabled"})
			return
		}
		removed, err := s.tracker.Cleanup(c.Request.Context(), s.retention())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	})
}

func (s *Server) retention() time.Duration {
	if s.cfg.VisitorRetention > 0 {
		return s.cfg.VisitorRetention
	}
	return 365 * 24 * time.Hour
}
