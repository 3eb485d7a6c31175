package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/chatwidget/domain/repositories"
)

// SessionCleanupService drops sessions that have been idle too long
type SessionCleanupService struct {
	sessionRepo repositories.SessionRepository
	idleTTL     time.Duration
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewSessionCleanupService creates a new session cleanup service. Sessions idle
// for longer than idleTTL are removed every interval.
func NewSessionCleanupService(sessionRepo repositories.SessionRepository, idleTTL, interval time.Duration, logger *zap.Logger) *SessionCleanupService {
	return &SessionCleanupService{
		sessionRepo: sessionRepo,
		idleTTL:     idleTTL,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *SessionCleanupService) Start() {
	s.wg.Add(1)
	go s.cleanupLoop()
	s.logger.Info("Session cleanup service started",
		zap.Duration("idle_ttl", s.idleTTL),
		zap.Duration("interval", s.interval))
}

// Stop gracefully stops the cleanup service
func (s *SessionCleanupService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Info("Session cleanup service stopped")
	})
}

// cleanupLoop runs the cleanup process periodically
func (s *SessionCleanupService) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// runCleanup performs the actual cleanup of idle sessions
func (s *SessionCleanupService) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := s.sessionRepo.ExpireIdle(ctx, s.idleTTL)
	if err != nil {
		s.logger.Error("Failed to expire sessions", zap.Error(err))
		return
	}

	if expired > 0 {
		s.logger.Info("Expired idle sessions",
			zap.Int("expired", expired),
			zap.Int("remaining", s.sessionRepo.Count()))
	}
}
