package automation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexsears/tentOS/pkg/common"
)

func TestRedisStateStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	states := NewRedisStateStore(client)

	_, err := states.Load(context.Background(), "rule")
	assert.Error(t, err)
	assert.Error(t, states.Save(context.Background(), "rule", RuleState{Triggered: true}))
}

func TestRedisStateStoreRoundTrip(t *testing.T) {
	addr := os.Getenv(common.EnvKeyTentOSRedisAddr)
	if os.Getenv(common.EnvKeyRunIntegrationTests) != "true" || addr == "" {
		t.Skip("Skipping redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	states := NewRedisStateStore(client)
	ctx := context.Background()
	ruleID := uuid.NewString()

	fresh, err := states.Load(ctx, ruleID)
	require.NoError(t, err)
	assert.Equal(t, RuleState{}, fresh)

	acted := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, states.Save(ctx, ruleID, RuleState{
		Triggered:      true,
		LastAction:     DirectionOn,
		LastActionTime: &acted,
	}))

	loaded, err := states.Load(ctx, ruleID)
	require.NoError(t, err)
	assert.True(t, loaded.Triggered)
	assert.Equal(t, DirectionOn, loaded.LastAction)
	require.NotNil(t, loaded.LastActionTime)
	assert.True(t, acted.Equal(*loaded.LastActionTime))

	require.NoError(t, states.Delete(ctx, ruleID))
	loaded, err = states.Load(ctx, ruleID)
	require.NoError(t, err)
	assert.False(t, loaded.Triggered)
}
