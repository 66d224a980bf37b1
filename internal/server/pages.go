package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/mailer"
	"github.com/Zachkp/folio/internal/metrics"
	"github.com/Zachkp/folio/internal/theme"
)

const colorSchemeHint = "Sec-CH-Prefers-Color-Scheme"

func (s *Server) registerPageRoutes(r *gin.RouterGroup) {
	r.GET("/", s.handleIndex)
	r.GET("/github", s.handleGitHub)
	r.GET("/resume", s.handleResume)
	r.GET("/resume.json", s.handleResumeJSON)
	r.GET("/resume.txt", s.handleResumeText)

	// HTMX fragments
	r.GET("/work-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "work-content.html", gin.H{"entries": s.content.Experience})
	})
	r.GET("/education-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "education-content.html", gin.H{"entries": s.content.Education})
	})
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{"title": "Contact Me"})
	})
	r.POST("/contact", s.handleContact)

	r.POST("/theme", s.handleTheme)

	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", s.pageData(c, gin.H{"title": "Privacy Policy"}))
	})
}

// themeFor resolves the request's theme from the stored preference and the
// browser's color scheme hint.
func (s *Server) themeFor(c *gin.Context) theme.Provider {
	pref, err := theme.LoadPreference(c.Request.Context(), s.sessionStore(c))
	if err != nil {
		s.log.Warn().Err(err).Msg("loading theme preference")
	}
	return theme.NewProvider(pref, c.GetHeader(colorSchemeHint) == "dark")
}

// pageData adds what every full page needs.
func (s *Server) pageData(c *gin.Context, data gin.H) gin.H {
	c.Header("Accept-CH", colorSchemeHint)
	data["profile"] = s.content.Profile
	data["theme"] = s.themeFor(c)
	data["year"] = time.Now().Year()
	return data
}

func (s *Server) handleIndex(c *gin.Context) {
	provider := s.themeFor(c)
	widget := s.chats.Get(c.Request.Context(), sessionID(c))
	state := widget.Snapshot()

	c.HTML(http.StatusOK, "index.html", s.pageData(c, gin.H{
		"content": s.content,
		"chat":    chatView{State: state, Theme: provider},
		// Scroll lock and backdrop while the chat is open.
		"scrollLocked": state.Open,
	}))
}

func (s *Server) handleGitHub(c *gin.Context) {
	c.HTML(http.StatusOK, "github.html", s.pageData(c, gin.H{
		"title":        "GitHub",
		"repositories": s.content.Repositories,
	}))
}

func (s *Server) handleResume(c *gin.Context) {
	c.HTML(http.StatusOK, "resume.html", s.pageData(c, gin.H{
		"title":  "Resume",
		"resume": s.content.Resume(time.Now()),
	}))
}

func (s *Server) handleResumeJSON(c *gin.Context) {
	data, err := s.content.Resume(time.Now()).JSON()
	if err != nil {
		s.log.Error().Err(err).Msg("encoding resume")
		c.String(http.StatusInternalServerError, "could not build resume")
		return
	}
	c.Header("Content-Disposition", "attachment; filename=resume.json")
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleResumeText(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=resume.txt")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(s.content.Resume(time.Now()).Text()))
}

func (s *Server) handleContact(c *gin.Context) {
	sub := mailer.Submission{
		Name:    c.PostForm("fullName"),
		Email:   c.PostForm("email"),
		Message: c.PostForm("message"),
	}

	err := s.mailer.Send(sub)
	switch {
	case err == nil:
		metrics.RecordContact("sent")
		c.HTML(http.StatusOK, "contact-success.html", gin.H{
			"success": "Thank you for your message! I'll get back to you soon.",
		})
	case errors.Is(err, mailer.ErrInvalidInput):
		metrics.RecordContact("invalid")
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, a valid email address and a message.",
		})
	default:
		metrics.RecordContact("failed")
		s.log.Error().Err(err).Msg("contact form")
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
	}
}

func (s *Server) handleTheme(c *gin.Context) {
	kv := s.sessionStore(c)
	pref, err := theme.LoadPreference(c.Request.Context(), kv)
	if err != nil {
		s.log.Warn().Err(err).Msg("loading theme preference")
	}
	next := pref.Next()
	if err := theme.SavePreference(c.Request.Context(), kv, next); err != nil {
		s.log.Error().Err(err).Msg("saving theme preference")
		c.Status(http.StatusInternalServerError)
		return
	}

	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Refresh", "true")
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
