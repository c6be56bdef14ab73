package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"notesage/internal/model"
)

// HistoryCache keeps each user's recent question/answer turns in Redis
// so the answering flow has context even when the client sends no
// history. Entries expire on their own and are dropped outright when a
// new document generation goes live, since old answers no longer
// reflect the stored documents.
type HistoryCache struct {
	client   *redisv9.Client
	ttl      time.Duration
	maxTurns int
}

func NewHistoryCache(client *redisv9.Client, ttl time.Duration, maxTurns int) *HistoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &HistoryCache{
		client:   client,
		ttl:      ttl,
		maxTurns: maxTurns,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, ownerID string) ([]model.ChatTurn, bool, error) {
	raw, err := c.client.Get(ctx, c.historyKey(ownerID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var turns []model.ChatTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return turns, true, nil
}

// AppendTurns adds turns to the owner's history, keeping only the most
// recent maxTurns entries.
func (c *HistoryCache) AppendTurns(ctx context.Context, ownerID string, turns ...model.ChatTurn) error {
	existing, _, err := c.GetHistory(ctx, ownerID)
	if err != nil {
		return err
	}
	merged := append(existing, turns...)
	if len(merged) > c.maxTurns {
		merged = merged[len(merged)-c.maxTurns:]
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(ownerID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) Invalidate(ctx context.Context, ownerID string) error {
	if err := c.client.Del(ctx, c.historyKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(ownerID string) string {
	return fmt.Sprintf("ask:history:%s", ownerID)
}
