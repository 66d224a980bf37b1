package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/conversation"
	"github.com/Zachkp/folio/internal/theme"
)

// chatView is what the widget template renders.
type chatView struct {
	State conversation.State
	Theme theme.Provider
}

type sendRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) registerChatRoutes(r *gin.RouterGroup) {
	// HTML fragments for the HTMX widget
	r.GET("/chat", s.renderWidget)
	r.POST("/chat/open", s.widgetAction(func(ctx context.Context, w *conversation.Widget) error { return w.Open(ctx) }))
	r.POST("/chat/close", s.widgetAction(func(ctx context.Context, w *conversation.Widget) error { return w.Close(ctx) }))
	r.POST("/chat/toggle", s.widgetAction(func(ctx context.Context, w *conversation.Widget) error {
		_, err := w.Toggle(ctx)
		return err
	}))
	r.POST("/chat/messages", s.handleSendFragment)

	// JSON
	api := r.Group("/api/chat")
	api.GET("", s.handleChatState)
	api.POST("/messages", s.handleSendJSON)
	api.POST("/open", s.apiAction(func(ctx context.Context, w *conversation.Widget) error { return w.Open(ctx) }))
	api.POST("/close", s.apiAction(func(ctx context.Context, w *conversation.Widget) error { return w.Close(ctx) }))
	api.POST("/toggle", s.apiAction(func(ctx context.Context, w *conversation.Widget) error {
		_, err := w.Toggle(ctx)
		return err
	}))
}

func (s *Server) widget(c *gin.Context) *conversation.Widget {
	return s.chats.Get(c.Request.Context(), sessionID(c))
}

// send delivers text, retrying once if the widget was evicted between lookup and use.
func (s *Server) send(c *gin.Context, text string) (*conversation.Widget, error) {
	w := s.widget(c)
	err := w.Send(c.Request.Context(), text)
	if errors.Is(err, conversation.ErrUnmounted) {
		w = s.widget(c)
		err = w.Send(c.Request.Context(), text)
	}
	return w, err
}

func (s *Server) renderWidget(c *gin.Context) {
	c.HTML(http.StatusOK, "chat-widget.html", chatView{
		State: s.widget(c).Snapshot(),
		Theme: s.themeFor(c),
	})
}

func (s *Server) widgetAction(action func(context.Context, *conversation.Widget) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := action(c.Request.Context(), s.widget(c)); err != nil {
			s.log.Error().Err(err).Str("path", c.FullPath()).Msg("chat widget action")
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"error": "Something went wrong, please try again."})
			return
		}
		s.renderWidget(c)
	}
}

func (s *Server) handleSendFragment(c *gin.Context) {
	_, err := s.send(c, c.PostForm("message"))
	if err != nil && !errors.Is(err, conversation.ErrEmptyMessage) {
		s.log.Error().Err(err).Msg("sending chat message")
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"error": "Your message could not be sent."})
		return
	}
	s.renderWidget(c)
}

func (s *Server) handleChatState(c *gin.Context) {
	c.JSON(http.StatusOK, s.widget(c).Snapshot())
}

func (s *Server) handleSendJSON(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	w, err := s.send(c, req.Message)
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.log.Error().Err(err).Msg("sending chat message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message could not be sent"})
		return
	}
	c.JSON(http.StatusAccepted, w.Snapshot())
}

func (s *Server) apiAction(action func(context.Context, *conversation.Widget) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		w := s.widget(c)
		if err := action(c.Request.Context(), w); err != nil {
			s.log.Error().Err(err).Str("path", c.FullPath()).Msg("chat widget action")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "widget state could not be saved"})
			return
		}
		c.JSON(http.StatusOK, w.Snapshot())
	}
}
