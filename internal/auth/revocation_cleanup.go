package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/drx-chat/domain/repositories"
)

// RevocationCleanupService periodically drops revoked tokens that expired anyway
type RevocationCleanupService struct {
	store    repositories.RevocationStore
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewRevocationCleanupService creates a new cleanup service
func NewRevocationCleanupService(store repositories.RevocationStore, interval time.Duration, logger *zap.Logger) *RevocationCleanupService {
	return &RevocationCleanupService{
		store:    store,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *RevocationCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Revocation cleanup service started", zap.Duration("interval", s.interval))
}

// Stop stops the cleanup loop and waits for it to exit
func (s *RevocationCleanupService) Stop() {
	close(s.stopChan)
	<-s.done
	s.logger.Info("Revocation cleanup service stopped")
}

func (s *RevocationCleanupService) cleanupLoop() {
	defer close(s.done)

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

func (s *RevocationCleanupService) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := s.store.Prune(ctx)
	if err != nil {
		s.logger.Error("Failed to prune revoked tokens", zap.Error(err))
		return
	}

	if pruned > 0 {
		s.logger.Info("Pruned revoked tokens", zap.Int("count", pruned))
	}
}
