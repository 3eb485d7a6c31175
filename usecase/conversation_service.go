package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/domain"
	"github.com/satriahrh/chatwidget/domain/entities"
	"github.com/satriahrh/chatwidget/domain/repositories"
)

// ConversationService resolves sessions by ID and runs turns against them.
// It is the entry point for both the HTTP API and the websocket widget.
type ConversationService struct {
	sessions    repositories.SessionRepository
	chatService *ChatService
	logger      *zap.Logger
}

// NewConversationService creates a new conversation service
func NewConversationService(
	sessions repositories.SessionRepository,
	chatService *ChatService,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		sessions:    sessions,
		chatService: chatService,
		logger:      logger,
	}
}

// StartSession creates a session with an empty history
func (s *ConversationService) StartSession(ctx context.Context) (*entities.Session, error) {
	session, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("Session started", zap.String("sessionID", session.ID))
	return session, nil
}

// Send runs one turn in the given session
func (s *ConversationService) Send(ctx context.Context, sessionID, text string) (*domain.ChatReply, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return s.chatService.Handle(ctx, session, text)
}

// History returns the session's turns, oldest first
func (s *ConversationService) History(ctx context.Context, sessionID string) ([]entities.Turn, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Snapshot(), nil
}

// KeepAlive refreshes the session's activity time while its client is
// connected but quiet
func (s *ConversationService) KeepAlive(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	session.KeepAlive()
	return nil
}

// Clear empties the session's history without ending the session
func (s *ConversationService) Clear(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Lock()
	session.History().Reset()
	session.Touch()
	session.Unlock()

	s.logger.Info("Session history cleared", zap.String("sessionID", sessionID))
	return nil
}

// EndSession discards the session and its history
func (s *ConversationService) EndSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Info("Session ended", zap.String("sessionID", sessionID))
	return nil
}
