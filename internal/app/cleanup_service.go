package app

import (
	"context"
	"log"
)

// ChunkCleaner is the maintenance slice of the vector store.
type ChunkCleaner interface {
	DeleteAll(ctx context.Context, ownerID string) (int64, error)
	Count(ctx context.Context, ownerID string) (int64, error)
}

// CleanupResult reports a force-clear of a user's documents.
type CleanupResult struct {
	Success        bool  `json:"success"`
	DeletedCount   int64 `json:"deletedCount"`
	RemainingCount int64 `json:"remainingCount"`
}

// CleanupService force-clears a user's documents synchronously,
// bypassing the background sweeper, and verifies the store is empty
// afterwards.
type CleanupService struct {
	store   ChunkCleaner
	history HistoryInvalidator
}

func NewCleanupService(store ChunkCleaner, history HistoryInvalidator) *CleanupService {
	return &CleanupService{store: store, history: history}
}

func (s *CleanupService) Cleanup(ctx context.Context, ownerID string) (*CleanupResult, error) {
	deleted, err := s.store.DeleteAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.store.Count(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if s.history != nil {
		if err := s.history.Invalidate(ctx, ownerID); err != nil {
			log.Printf("cleanup: invalidate history for %s failed: %v", ownerID, err)
		}
	}

	return &CleanupResult{
		Success:        true,
		DeletedCount:   deleted,
		RemainingCount: remaining,
	}, nil
}
