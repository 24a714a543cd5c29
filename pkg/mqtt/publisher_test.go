package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/config"
	"github.com/alexsears/tentOS/pkg/state"
	"github.com/alexsears/tentOS/pkg/tent"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error, complete bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	published    []published
	err          error
	hang         bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload any) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return newFakeToken(c.err, !c.hang)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) Published() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.published...)
}

func snapshotOf(id string) tent.Snapshot {
	tt := tent.New(config.TentConfig{ID: id, Name: strings.ToUpper(id)})
	tt.UpdateSensor(tent.FieldTemperature, "24", "°C", "sensor.a")
	return tt.Snapshot()
}

func TestPublishTentUpdate(t *testing.T) {
	common.SetTestLoggerNop()

	client := &fakeClient{}
	p := NewPublisher(client, "/tentos/", nil)

	require.NoError(t, p.Send(context.Background(), state.TentUpdate(snapshotOf("veg"))))

	msgs := client.Published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "tentos/veg/state", msgs[0].topic)
	assert.True(t, msgs[0].retained)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].payload, &payload))
	assert.Equal(t, "veg", payload["id"])
	assert.Equal(t, 24.0, payload["avg_temperature"])
}

func TestPublishInitialStateFansOutPerTent(t *testing.T) {
	common.SetTestLoggerNop()

	client := &fakeClient{}
	p := NewPublisher(client, "grow", nil)

	msg := state.InitialState([]tent.Snapshot{snapshotOf("veg"), snapshotOf("flower")})
	require.NoError(t, p.Send(context.Background(), msg))

	msgs := client.Published()
	require.Len(t, msgs, 2)
	assert.Equal(t, "grow/veg/state", msgs[0].topic)
	assert.Equal(t, "grow/flower/state", msgs[1].topic)
}

func TestPublishFailureKeepsSubscriber_WithLog(t *testing.T) {
	var buf = &bytes.Buffer{}
	common.SetTestCaptureLogger(buf, zapcore.InfoLevel)

	client := &fakeClient{err: errors.New("not connected")}
	p := NewPublisher(client, "tentos", nil)

	hub := state.NewHub(time.Second, nil)
	hub.Add(p)
	hub.Broadcast(context.Background(), state.TentUpdate(snapshotOf("veg")))

	assert.Equal(t, 1, hub.Len())
	assert.Contains(t, buf.String(), "Failed to publish tent snapshot")
}

func TestPublishGivesUpOnContext(t *testing.T) {
	common.SetTestLoggerNop()

	client := &fakeClient{hang: true}
	p := NewPublisher(client, "tentos", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	require.NoError(t, p.Send(ctx, state.TentUpdate(snapshotOf("veg"))))
	assert.Less(t, time.Since(started), time.Second)
}

func TestClose(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "tentos", nil)
	p.Close()
	assert.True(t, client.disconnected)
	assert.Equal(t, SubscriberID, p.ID())
}
