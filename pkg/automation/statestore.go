package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StateStore persists rule runtime state across restarts.
type StateStore interface {
	Load(ctx context.Context, ruleID string) (RuleState, error)
	Save(ctx context.Context, ruleID string, state RuleState) error
	Delete(ctx context.Context, ruleID string) error
}

type RedisStateStore struct {
	redis *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{redis: client}
}

func stateKey(ruleID string) string {
	return fmt.Sprintf("tentos:rule_state:%s", ruleID)
}

// Load returns a fresh state when nothing was stored for the rule.
func (s *RedisStateStore) Load(ctx context.Context, ruleID string) (RuleState, error) {
	data, err := s.redis.Get(ctx, stateKey(ruleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return RuleState{}, nil
	}
	if err != nil {
		return RuleState{}, fmt.Errorf("failed to get rule state from Redis: %w", err)
	}

	var state RuleState
	if err := json.Unmarshal(data, &state); err != nil {
		return RuleState{}, fmt.Errorf("failed to unmarshal rule state: %w", err)
	}
	return state, nil
}

func (s *RedisStateStore) Save(ctx context.Context, ruleID string, state RuleState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal rule state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(ruleID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set rule state in Redis: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, ruleID string) error {
	return s.redis.Del(ctx, stateKey(ruleID)).Err()
}
