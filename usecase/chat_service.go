package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/domain"
	"github.com/satriahrh/chatwidget/domain/entities"
	"github.com/satriahrh/chatwidget/domain/repositories"
)

const (
	// botCue ends every prompt so the model continues as the bot
	botCue = "Bot:"

	contextHeader = "Context:"
)

// ChatServiceConfig holds the fixed generation settings of a ChatService
type ChatServiceConfig struct {
	MaxNewTokens int
	// Timeout bounds a single model call; zero leaves it to the caller's context
	Timeout time.Duration

	// Retriever grounds prompts in passages from a document corpus. Nil
	// turns retrieval off.
	Retriever     repositories.Retriever
	RetrievalTopK int
}

// ChatService handles one conversation turn at a time
type ChatService struct {
	llm    repositories.Generator
	config ChatServiceConfig
	logger *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(llm repositories.Generator, config ChatServiceConfig, logger *zap.Logger) *ChatService {
	return &ChatService{
		llm:    llm,
		config: config,
		logger: logger,
	}
}

// BuildPrompt renders the history as the model's context, ending with the
// cue for the bot's next line. Retrieved passages, when there are any, come
// first under a "Context:" header.
func BuildPrompt(history *entities.History, passages []string) string {
	var b strings.Builder
	if len(passages) > 0 {
		b.WriteString(contextHeader)
		b.WriteString("\n")
		b.WriteString(strings.Join(passages, "\n"))
		b.WriteString("\n\n")
	}
	if rendered := history.Render(); rendered != "" {
		b.WriteString(rendered)
		b.WriteString("\n")
	}
	b.WriteString(botCue)
	return b.String()
}

// retrieve looks up passages for the user's text. A failed lookup is logged
// and the turn goes on without context.
func (s *ChatService) retrieve(ctx context.Context, sessionID, text string) []string {
	if s.config.Retriever == nil || s.config.RetrievalTopK <= 0 {
		return nil
	}
	passages, err := s.config.Retriever.Retrieve(ctx, text, s.config.RetrievalTopK)
	if err != nil {
		s.logger.Warn("Context retrieval failed, continuing without context",
			zap.String("sessionID", sessionID),
			zap.Error(err))
		return nil
	}
	return passages
}

// Handle runs one turn: it records the user's text, asks the model for a
// reply using the session history as context, records the reply and returns it
// along with the history length at the end of the turn.
//
// Empty input is rejected with domain.ErrEmptyMessage and leaves the history
// untouched. A failed, timed out or blank generation returns an
// *domain.ExternalServiceError; the user turn stays recorded and no bot turn
// is added.
func (s *ChatService) Handle(ctx context.Context, session *entities.Session, userText string) (*domain.ChatReply, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}

	session.Lock()
	defer session.Unlock()

	history := session.History()
	history.Append(entities.UserTurn(text))
	session.Touch()

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	started := time.Now()
	prompt := BuildPrompt(history, s.retrieve(ctx, session.ID, text))

	reply, err := s.llm.Generate(ctx, prompt, s.config.MaxNewTokens)
	if err != nil {
		s.logger.Error("Model call failed",
			zap.String("sessionID", session.ID),
			zap.String("model", s.llm.Model()),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return nil, domain.NewExternalServiceError("generate", s.llm.Model(), err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.logger.Warn("Model returned an empty reply",
			zap.String("sessionID", session.ID),
			zap.String("model", s.llm.Model()))
		return nil, domain.NewExternalServiceError("generate", s.llm.Model(), domain.ErrEmptyReply)
	}

	history.Append(entities.BotTurn(reply))
	session.Touch()

	s.logger.Info("Turn completed",
		zap.String("sessionID", session.ID),
		zap.Int("history_length", history.Len()),
		zap.Duration("elapsed", time.Since(started)))

	return &domain.ChatReply{
		SessionID:  session.ID,
		Reply:      reply,
		HistoryLen: history.Len(),
		Timestamp:  time.Now(),
	}, nil
}

// IsRejected reports whether err means the input was ignored rather than failed
func IsRejected(err error) bool {
	return errors.Is(err, domain.ErrEmptyMessage)
}
