package coverage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mqttTestConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			RadiusKm:   5,
			K:          5,
			Thresholds: DefaultThresholds(),
		},
		MQTT: MQTTConfig{
			Broker:        "mqtt://localhost:1883",
			QueryTopic:    "netcover/query/+",
			PublishPrefix: "netcover",
		},
	}
}

func TestInitMQTT_Disabled(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")

	config := &Config{} // no broker anywhere
	client, err := InitMQTT(config, nil)
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestInitMQTT_NoQueryTopic(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")

	config := &Config{
		MQTT: MQTTConfig{Broker: "mqtt://localhost:1883"},
	}

	_, err := InitMQTT(config, nil)
	assert.Error(t, err)
}

func TestMQTTClient_IsConnected(t *testing.T) {
	client := &MQTTClient{}
	assert.False(t, client.IsConnected(), "new client should not be connected")

	client.setConnected(true)
	assert.True(t, client.IsConnected())

	client.setConnected(false)
	assert.False(t, client.IsConnected())
}

func TestRequestIDFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{topic: "netcover/query/kiosk-7", want: "kiosk-7"},
		{topic: "netcover/query/field-team-3", want: "field-team-3"},
		{topic: "single", want: "single"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, requestIDFromTopic(tt.topic))
	}
}

func TestParseQuery(t *testing.T) {
	client := newMQTTClientWithMock(NewMockClient(), mqttTestConfig(), nil)

	tests := []struct {
		name       string
		payload    string
		wantErr    bool
		wantRadius float64
		wantK      int
	}{
		{
			name:       "coordinates only, config defaults apply",
			payload:    `{"latitude": 6.5244, "longitude": 3.3792}`,
			wantRadius: 5,
			wantK:      5,
		},
		{
			name:       "explicit radius and k override defaults",
			payload:    `{"latitude": 6.5244, "longitude": 3.3792, "radiusKm": 20, "k": 3}`,
			wantRadius: 20,
			wantK:      3,
		},
		{
			name:       "explicit zero radius means unlimited",
			payload:    `{"latitude": 6.5244, "longitude": 3.3792, "radiusKm": 0}`,
			wantRadius: 0,
			wantK:      5,
		},
		{
			name:    "invalid coordinates",
			payload: `{"latitude": 95, "longitude": 3.3792}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `lat=6.5`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := client.parseQuery([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRadius, q.RadiusKm)
			assert.Equal(t, tt.wantK, q.K)
			assert.Equal(t, 6.5244, q.Lat)
		})
	}
}

func TestHandleQueryMessage(t *testing.T) {
	var mu sync.Mutex
	var gotID string
	var gotQuery QueryPoint
	var gotErr error

	handler := func(requestID string, q QueryPoint, err error) {
		mu.Lock()
		defer mu.Unlock()
		gotID, gotQuery, gotErr = requestID, q, err
	}

	mock := NewMockClient()
	mock.SetConnected(true)
	client := newMQTTClientWithMock(mock, mqttTestConfig(), handler)

	token := mock.Subscribe("netcover/query/+", 0, client.handleQueryMessage)
	require.NoError(t, token.Error())

	mock.SimulateMessage("netcover/query/kiosk-7",
		[]byte(`{"latitude": 6.5244, "longitude": 3.3792, "radiusKm": 10}`))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "kiosk-7", gotID)
	assert.NoError(t, gotErr)
	assert.Equal(t, 6.5244, gotQuery.Lat)
	assert.Equal(t, 10.0, gotQuery.RadiusKm)
}

func TestHandleQueryMessage_BadPayload(t *testing.T) {
	var mu sync.Mutex
	var gotErr error
	called := false

	handler := func(requestID string, q QueryPoint, err error) {
		mu.Lock()
		defer mu.Unlock()
		called = true
		gotErr = err
	}

	mock := NewMockClient()
	mock.SetConnected(true)
	client := newMQTTClientWithMock(mock, mqttTestConfig(), handler)

	mock.Subscribe("netcover/query/+", 0, client.handleQueryMessage)
	mock.SimulateMessage("netcover/query/kiosk-7", []byte(`{"latitude": 95}`))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, called, "handler should still be invoked on bad payloads")
	assert.Error(t, gotErr)
	assert.True(t, IsValidation(gotErr))
}

func TestMQTTClient_Disconnect(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	client := newMQTTClientWithMock(mock, mqttTestConfig(), nil)
	client.setConnected(true)

	client.Disconnect()
	assert.False(t, client.IsConnected())
	assert.False(t, mock.IsConnected())
}

func TestMQTTClient_GetClient(t *testing.T) {
	mock := NewMockClient()
	client := newMQTTClientWithMock(mock, mqttTestConfig(), nil)
	assert.Equal(t, mock, client.GetClient())
}
