package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plant-advisor/internal/models"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient records publishes; other methods are not used by Publisher.
type fakeClient struct {
	mqtt.Client
	messages []published
	err      error
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return &fakeToken{err: c.err}
}

func TestExtractPlantID(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"plant/fern-01/reading", "fern-01"},
		{"plant/basil/recommendation", "basil"},
		{"plant", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractPlantID(tt.topic), tt.topic)
	}
}

func TestFormatTopic(t *testing.T) {
	assert.Equal(t, "plant/fern/recommendation", formatTopic("plant/{plant_id}/recommendation", "fern"))
	assert.Equal(t, "static/topic", formatTopic("static/topic", "fern"))
}

func TestParseReadingPayload(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("server timestamp", func(t *testing.T) {
		payload := []byte(`{"day":3,"moisture":61.5,"humidity":70,"watering":0.4,"plant_health":0.81}`)
		r, err := parseReadingPayload("plant/fern/reading", payload, now)
		require.NoError(t, err)
		assert.Equal(t, &models.Reading{
			Timestamp:   now,
			PlantID:     "fern",
			Day:         3,
			Moisture:    61.5,
			Humidity:    70,
			Watering:    0.4,
			PlantHealth: 0.81,
		}, r)
	})

	t.Run("payload timestamp", func(t *testing.T) {
		payload := []byte(`{"day":1,"moisture":60,"humidity":70,"watering":0.5,"plant_health":0.8,"timestamp":"2024-04-30T08:00:00Z"}`)
		r, err := parseReadingPayload("plant/fern/reading", payload, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC), r.Timestamp.UTC())
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := parseReadingPayload("plant/fern/reading", []byte(`{"moisture":`), now)
		assert.ErrorIs(t, err, ErrInvalidReading)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		_, err := parseReadingPayload("plant/fern/reading", []byte(`{"timestamp":"yesterday"}`), now)
		assert.ErrorIs(t, err, ErrInvalidReading)
	})

	t.Run("no plant id", func(t *testing.T) {
		_, err := parseReadingPayload("plant", []byte(`{}`), now)
		assert.ErrorIs(t, err, ErrNoPlantID)
	})
}

func TestDeliver(t *testing.T) {
	ch := make(chan *models.Reading, 1)
	r := &models.Reading{PlantID: "fern"}

	assert.True(t, deliver(ch, r, 10*time.Millisecond))
	assert.False(t, deliver(ch, r, 10*time.Millisecond), "full channel drops after timeout")
	assert.Same(t, r, <-ch)
}

func TestPublisher_StartPublishesUntilClosed(t *testing.T) {
	client := &fakeClient{}
	ch := make(chan *models.Recommendation, 2)
	p := NewPublisher(client, PublisherConfig{RecommendationTopic: "plant/{plant_id}/recommendation"}, ch)

	ch <- &models.Recommendation{RunID: uuid.New(), PlantID: "fern", Moisture: 60, ExpectedHealth: 0.82}
	close(ch)

	done := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after channel close")
	}

	require.Len(t, client.messages, 1)
	msg := client.messages[0]
	assert.Equal(t, "plant/fern/recommendation", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &decoded))
	assert.Equal(t, 0.82, decoded["expected_health"])
	assert.Equal(t, "fern", decoded["plant_id"])
	assert.NotContains(t, decoded, "Trials")
}

func TestPublisher_PublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("broker gone")}
	p := NewPublisher(client, PublisherConfig{RecommendationTopic: "plant/{plant_id}/recommendation"}, nil)

	err := p.Publish(&models.Recommendation{PlantID: "fern"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker gone")
}

func TestPublisher_StopsOnCancel(t *testing.T) {
	p := NewPublisher(&fakeClient{}, PublisherConfig{}, make(chan *models.Recommendation))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Start(ctx)
}
