package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shift-scheduler/config"
	"shift-scheduler/models"
)

// mockClient implements pahoClient for tests
type mockClient struct {
	opts      *paho.ClientOptions
	connErr   error
	published []struct {
		topic    string
		qos      byte
		retained bool
		payload  []byte
	}
	publishErrs  []error
	disconnected bool
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	return &dummyToken{err: m.connErr, done: true}
}
func (m *mockClient) Disconnect(uint) { m.disconnected = true }
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.published = append(m.published, struct {
		topic    string
		qos      byte
		retained bool
		payload  []byte
	}{topic, qos, retained, payload.([]byte)})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err, done: true}
	}
	return &dummyToken{done: true}
}

type dummyToken struct {
	err  error
	done bool
}

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return d.done }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func useMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func testConfig() config.NotifyConfig {
	cfg := config.NotifyConfig{Enabled: true, Broker: "tcp://localhost:1883", ClientID: "id", QoS: 1, Retain: true}
	cfg.SetDefaults()
	return cfg
}

func samplePlan() *models.Plan {
	return &models.Plan{
		Assignments: []models.Assignment{
			{Hour: 9, WorkerCode: 7, WorkerTotal: 3, Window: models.Morning, SlotTier: models.Level2},
			{Hour: 8, WorkerCode: 7, WorkerTotal: 3, Window: models.Morning, SlotTier: models.Level3, Fixed: true},
			{Hour: 8, WorkerCode: 2, WorkerTotal: 1, Window: models.Morning, SlotTier: models.Level3},
		},
		Requested: 3,
	}
}

func TestMessages(t *testing.T) {
	msgs := Messages("run", "2024-05-01", samplePlan().Assignments)
	require.Len(t, msgs, 2)

	assert.Equal(t, Message{
		RunID: "run", Day: "2024-05-01", WorkerCode: 2, TotalAssigned: 1,
		Shifts: []Shift{{Hour: 8, Window: models.Morning, SlotTier: models.Level3}},
	}, msgs[0])
	assert.Equal(t, 7, msgs[1].WorkerCode)
	assert.Equal(t, []int{8, 9}, []int{msgs[1].Shifts[0].Hour, msgs[1].Shifts[1].Hour})
	assert.Empty(t, Messages("run", "d", nil))
}

func TestMQTTNotifier_Publish(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)

	n, err := NewMQTTNotifier(testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, "id", mc.opts.ClientID)

	require.NoError(t, n.Publish(context.Background(), "run-1", "2024-05-01", samplePlan()))
	require.Len(t, mc.published, 2)
	assert.Equal(t, "shifts/assignments/2", mc.published[0].topic)
	assert.Equal(t, "shifts/assignments/7", mc.published[1].topic)
	assert.Equal(t, byte(1), mc.published[1].qos)
	assert.True(t, mc.published[1].retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(mc.published[1].payload, &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, float64(3), got["total_assigned"])
	shifts := got["shifts"].([]any)
	assert.Equal(t, "MORNING", shifts[0].(map[string]any)["window"])
	assert.Equal(t, true, shifts[0].(map[string]any)["fixed"])

	n.Close()
	assert.True(t, mc.disconnected)
}

func TestMQTTNotifier_GeneratesClientID(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)

	cfg := testConfig()
	cfg.ClientID = ""
	_, err := NewMQTTNotifier(cfg, nil)
	require.NoError(t, err)
	assert.Regexp(t, `^shift-scheduler-[0-9a-f-]{36}$`, mc.opts.ClientID)
}

func TestMQTTNotifier_Errors(t *testing.T) {
	t.Run("ConnectFails", func(t *testing.T) {
		useMock(t, &mockClient{connErr: fmt.Errorf("refused")})
		_, err := NewMQTTNotifier(testConfig(), nil)
		assert.ErrorContains(t, err, "refused")
	})

	t.Run("PublishStopsAtFirstFailure", func(t *testing.T) {
		mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail")}}
		useMock(t, mc)
		n, err := NewMQTTNotifier(testConfig(), nil)
		require.NoError(t, err)

		err = n.Publish(context.Background(), "run", "day", samplePlan())
		assert.ErrorContains(t, err, "net fail")
		assert.Len(t, mc.published, 1)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		mc := &mockClient{}
		useMock(t, mc)
		n, err := NewMQTTNotifier(testConfig(), nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, n.Publish(ctx, "run", "day", samplePlan()), context.Canceled)
		assert.Empty(t, mc.published)
	})
}
