package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/domain"
	"github.com/satriahrh/chatwidget/internal/auth"
	"github.com/satriahrh/chatwidget/internal/websocket"
	"github.com/satriahrh/chatwidget/usecase"
)

const sessionIDKey = "session_id"

// Handler serves the HTTP API
type Handler struct {
	hub          *websocket.Hub
	conversation *usecase.ConversationService
	signer       *auth.Signer
	model        string
	logger       *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	hub *websocket.Hub,
	conversation *usecase.ConversationService,
	signer *auth.Signer,
	widget WidgetConfig,
	model string,
	logger *zap.Logger,
) error {
	h := &Handler{
		hub:          hub,
		conversation: conversation,
		signer:       signer,
		model:        model,
		logger:       logger,
	}

	page, err := renderWidget(widget)
	if err != nil {
		return err
	}

	// Chat widget
	e.GET("/", func(c echo.Context) error {
		return c.HTMLBlob(http.StatusOK, page)
	})

	// Health check
	e.GET("/health", h.health)

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.POST("/sessions", h.createSession)

	authed := v1.Group("", h.requireSession)
	authed.POST("/chat", h.chat)
	authed.GET("/history", h.history)
	authed.DELETE("/history", h.clearHistory)
	authed.DELETE("/sessions", h.endSession)

	// WebSocket endpoint
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	})

	return nil
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"service":  "chatwidget",
		"model":    h.model,
		"clients":  h.hub.ClientCount(),
		"sessions": len(h.hub.ActiveSessions()),
	})
}

func (h *Handler) createSession(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.conversation.StartSession(ctx)
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create session",
		})
	}

	token, expiresAt, err := h.signer.Issue(session.ID)
	if err != nil {
		h.logger.Error("Failed to issue session token",
			zap.String("sessionID", session.ID),
			zap.Error(err))
		_ = h.conversation.EndSession(ctx, session.ID)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate session token",
		})
	}

	return c.JSON(http.StatusCreated, SessionResponse{
		SessionID: session.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// requireSession validates the bearer token and stores its session ID
func (h *Handler) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := auth.BearerToken(c.Request().Header.Get("Authorization"))
		if token == "" {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_token",
				Message: "Session token is required in Authorization header",
			})
		}

		claims, err := h.signer.Validate(token)
		if err != nil {
			h.logger.Warn("Rejected session token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Invalid or expired session token",
			})
		}

		c.Set(sessionIDKey, claims.SessionID)
		return next(c)
	}
}

func (h *Handler) chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	sessionID := c.Get(sessionIDKey).(string)
	reply, err := h.conversation.Send(c.Request().Context(), sessionID, req.Message)
	if err != nil {
		return h.turnError(c, sessionID, err)
	}
	return c.JSON(http.StatusOK, reply)
}

func (h *Handler) turnError(c echo.Context, sessionID string, err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_message",
			Message: "Message must not be empty",
		})
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "Session has expired",
		})
	case domain.IsExternalServiceError(err):
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "external_service_error",
			Message: "The model could not produce a reply",
		})
	default:
		h.logger.Error("Failed to handle turn",
			zap.String("sessionID", sessionID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal_error",
		})
	}
}

func (h *Handler) history(c echo.Context) error {
	sessionID := c.Get(sessionIDKey).(string)
	turns, err := h.conversation.History(c.Request().Context(), sessionID)
	if err != nil {
		return h.turnError(c, sessionID, err)
	}
	return c.JSON(http.StatusOK, HistoryResponse{
		SessionID: sessionID,
		Turns:     turns,
	})
}

func (h *Handler) clearHistory(c echo.Context) error {
	sessionID := c.Get(sessionIDKey).(string)
	if err := h.conversation.Clear(c.Request().Context(), sessionID); err != nil {
		return h.turnError(c, sessionID, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) endSession(c echo.Context) error {
	sessionID := c.Get(sessionIDKey).(string)
	if err := h.conversation.EndSession(c.Request().Context(), sessionID); err != nil {
		return h.turnError(c, sessionID, err)
	}
	return c.NoContent(http.StatusNoContent)
}
