package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/config"
	"github.com/alexsears/tentOS/pkg/hass"
	"github.com/alexsears/tentOS/pkg/tent"
)

func sensorEvent(entityID, value string) hass.StateChangedEvent {
	return hass.StateChangedEvent{
		EntityID: entityID,
		NewState: &hass.State{EntityID: entityID, State: value},
	}
}

func TestStartAppliesCurrentStatesAndLiveEvents(t *testing.T) {
	common.SetTestLoggerNop()

	loader := &stubLoader{configs: []config.TentConfig{vegTent("veg")}}
	_, m, client, evaluator := GetTestManager(t, loader, Options{})

	var mu sync.Mutex
	var handler hass.StateChangeHandler
	client.EXPECT().SubscribeStateChanges(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, h hass.StateChangeHandler) error {
			mu.Lock()
			defer mu.Unlock()
			handler = h
			return nil
		})
	client.EXPECT().GetStates(gomock.Any()).Return([]hass.State{
		{EntityID: "sensor.a", State: "22", Attributes: map[string]any{"unit_of_measurement": "°C"}},
		{EntityID: "switch.exhaust", State: "off"},
		{EntityID: "sensor.kitchen", State: "19"},
	}, nil)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	snapshot, err := m.GetTent("veg")
	require.NoError(t, err)
	require.NotNil(t, snapshot.AvgTemperature)
	assert.Equal(t, 22.0, *snapshot.AvgTemperature)
	assert.Equal(t, "off", snapshot.Actuators["exhaust_fan"].State)

	// startup states run through automation like live ones
	assert.Equal(t, []evaluationCall{{"veg", "temperature", 22}}, evaluator.Calls())

	sub := &fakeSubscriber{id: "ui"}
	m.AddSubscriber(sub)

	mu.Lock()
	h := handler
	mu.Unlock()
	require.NotNil(t, h)
	h(sensorEvent("sensor.b", "26"))

	require.Eventually(t, func() bool {
		s, _ := m.GetTent("veg")
		return s.AvgTemperature != nil && *s.AvgTemperature == 24
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return len(sub.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	msg := sub.Messages()[0]
	assert.Equal(t, MessageTentUpdate, msg.Type)
	assert.Equal(t, "veg", msg.TentID)
	assert.Equal(t, 24.0, *msg.Data.AvgTemperature)
}

func TestEndToEndAveragingAndDerivedMetrics(t *testing.T) {
	common.SetTestLoggerNop()

	loader := &stubLoader{configs: []config.TentConfig{vegTent("veg")}}
	_, m, client, evaluator := GetTestManager(t, loader, Options{})
	client.EXPECT().SubscribeStateChanges(gomock.Any(), gomock.Any()).Return(nil)
	client.EXPECT().GetStates(gomock.Any()).Return(nil, nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	ctx := context.Background()
	m.HandleStateChange(ctx, sensorEvent("sensor.a", "22"))
	m.HandleStateChange(ctx, sensorEvent("sensor.b", "26"))

	snapshot, err := m.GetTent("veg")
	require.NoError(t, err)
	assert.Equal(t, 24.0, *snapshot.AvgTemperature)
	assert.Nil(t, snapshot.VPD)

	m.HandleStateChange(ctx, sensorEvent("sensor.h", "55"))

	snapshot, err = m.GetTent("veg")
	require.NoError(t, err)
	require.NotNil(t, snapshot.VPD)
	assert.Equal(t, tent.CalculateVPD(24, 55), *snapshot.VPD)
	assert.True(t, snapshot.ScoreAvailable)
	assert.Greater(t, snapshot.EnvironmentScore, 0)

	// the automation sees averaged values, plus vpd once both inputs exist
	assert.Equal(t, []evaluationCall{
		{"veg", "temperature", 22},
		{"veg", "temperature", 24},
		{"veg", "humidity", 55},
		{"veg", "vpd", tent.CalculateVPD(24, 55)},
	}, evaluator.Calls())
}

func TestNonNumericSensorSkipsAutomation(t *testing.T) {
	common.SetTestLoggerNop()

	loader := &stubLoader{configs: []config.TentConfig{vegTent("veg")}}
	_, m, client, evaluator := GetTestManager(t, loader, Options{})
	client.EXPECT().SubscribeStateChanges(gomock.Any(), gomock.Any()).Return(nil)
	client.EXPECT().GetStates(gomock.Any()).Return(nil, nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	m.HandleStateChange(context.Background(), sensorEvent("sensor.a", "unavailable"))
	m.HandleStateChange(context.Background(), hass.StateChangedEvent{EntityID: "sensor.a"})

	snapshot, err := m.GetTent("veg")
	require.NoError(t, err)
	assert.Nil(t, snapshot.AvgTemperature)
	assert.Equal(t, "unavailable", snapshot.Sensors["temperature"].State)
	assert.Empty(t, evaluator.Calls())
}

func TestReloadConfig(t *testing.T) {
	common.SetTestLoggerNop()

	loader := &stubLoader{configs: []config.TentConfig{vegTent("veg")}}
	_, m, client, _ := GetTestManager(t, loader, Options{})
	client.EXPECT().SubscribeStateChanges(gomock.Any(), gomock.Any()).Return(nil)
	client.EXPECT().GetStates(gomock.Any()).Return([]hass.State{{EntityID: "sensor.a", State: "22"}}, nil).Times(3)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	sub := &fakeSubscriber{id: "ui"}
	m.AddSubscriber(sub)

	t.Run("bad file keeps previous config", func(t *testing.T) {
		loader.set(nil, config.ErrInvalidTentConfig)

		err := m.ReloadConfig(context.Background())
		assert.ErrorIs(t, err, config.ErrInvalidTentConfig)

		_, err = m.GetTent("veg")
		assert.NoError(t, err)
		assert.Empty(t, sub.Messages())
	})

	t.Run("rebuilds and rebroadcasts", func(t *testing.T) {
		flower := config.TentConfig{
			ID:      "flower",
			Name:    "Flower Tent",
			Sensors: map[string][]string{"temperature": {"sensor.a"}},
		}
		loader.set([]config.TentConfig{flower}, nil)

		require.NoError(t, m.ReloadConfig(context.Background()))

		_, err := m.GetTent("veg")
		assert.ErrorIs(t, err, ErrTentNotFound)

		snapshot, err := m.GetTent("flower")
		require.NoError(t, err)
		assert.Equal(t, 22.0, *snapshot.AvgTemperature)

		msgs := sub.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "flower", msgs[0].TentID)
		assert.Len(t, m.TentConfigs(), 1)
	})

	t.Run("caller going away keeps subscribers", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, m.ReloadConfig(ctx))

		assert.Len(t, sub.Messages(), 2)
		assert.Equal(t, 1, m.Subscribers())
	})
}

func TestStartWithBrokenConfigRunsEmpty(t *testing.T) {
	common.SetTestLoggerNop()

	loader := &stubLoader{err: config.ErrInvalidTentConfig}
	_, m, client, _ := GetTestManager(t, loader, Options{})
	client.EXPECT().SubscribeStateChanges(gomock.Any(), gomock.Any()).Return(nil)
	client.EXPECT().GetStates(gomock.Any()).Return(nil, errors.New("timeout"))

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	assert.Empty(t, m.GetAllTents())
}

func TestStartFailsWhenSubscribeFails(t *testing.T) {
	common.SetTestLoggerNop()

	loader := &stubLoader{configs: []config.TentConfig{vegTent("veg")}}
	_, m, client, _ := GetTestManager(t, loader, Options{})
	client.EXPECT().SubscribeStateChanges(gomock.Any(), gomock.Any()).Return(hass.ErrNotConnected)

	err := m.Start(context.Background())
	assert.ErrorIs(t, err, hass.ErrNotConnected)
	m.Stop()
}

func TestResolveActuator(t *testing.T) {
	common.SetTestLoggerNop()

	cfg := vegTent("veg")
	cfg.Actuators["humidifier"] = []string{"switch.hum_1", "switch.hum_2"}
	loader := &stubLoader{configs: []config.TentConfig{cfg}}
	_, m, client, _ := GetTestManager(t, loader, Options{})
	client.EXPECT().SubscribeStateChanges(gomock.Any(), gomock.Any()).Return(nil)
	client.EXPECT().GetStates(gomock.Any()).Return(nil, nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	entityID, ok := m.ResolveActuator("veg", "humidifier")
	assert.True(t, ok)
	assert.Equal(t, "switch.hum_1", entityID)

	_, ok = m.ResolveActuator("veg", "heater")
	assert.False(t, ok)
	_, ok = m.ResolveActuator("nope", "light")
	assert.False(t, ok)
}

func TestEventsAfterStopAreIgnored(t *testing.T) {
	common.SetTestLoggerNop()

	loader := &stubLoader{configs: []config.TentConfig{vegTent("veg")}}
	_, m, client, _ := GetTestManager(t, loader, Options{})

	var handler hass.StateChangeHandler
	client.EXPECT().SubscribeStateChanges(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, h hass.StateChangeHandler) error {
			handler = h
			return nil
		})
	client.EXPECT().GetStates(gomock.Any()).Return(nil, nil)
	require.NoError(t, m.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	handler(sensorEvent("sensor.a", "30"))
	time.Sleep(50 * time.Millisecond)

	snapshot, err := m.GetTent("veg")
	require.NoError(t, err)
	assert.Nil(t, snapshot.AvgTemperature)
}
