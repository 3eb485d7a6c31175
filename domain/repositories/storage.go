package repositories

import (
	"context"
	"time"

	"github.com/satriahrh/chatwidget/domain/entities"
)

// SessionRepository keeps live sessions for the lifetime of the process
type SessionRepository interface {
	Create(ctx context.Context) (*entities.Session, error)
	Get(ctx context.Context, id string) (*entities.Session, error)
	Delete(ctx context.Context, id string) error
	// ExpireIdle drops sessions idle for longer than ttl and returns how many
	ExpireIdle(ctx context.Context, ttl time.Duration) (int, error)
	Count() int
}
