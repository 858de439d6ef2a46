package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"plant-advisor/internal/models"
)

var (
	ErrNoPlantID      = errors.New("topic has no plant id")
	ErrInvalidReading = errors.New("invalid reading payload")
)

// sendTimeout bounds how long a handler waits on a full channel
const sendTimeout = 1 * time.Second

// Subscriber handles MQTT subscriptions and writes messages to channels
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the ingest service)
	ReadingChan chan *models.Reading

	readingTopic string
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	ReadingTopic string // e.g., "plant/+/reading"
}

// NewSubscriber creates a new MQTT subscriber with channels
func NewSubscriber(
	client mqtt.Client,
	config SubscriberConfig,
	readingChan chan *models.Reading,
) *Subscriber {
	return &Subscriber{
		client:       client,
		ReadingChan:  readingChan,
		readingTopic: config.ReadingTopic,
	}
}

// SubscribeAll subscribes to all configured plant topics
func (s *Subscriber) SubscribeAll() error {
	if s.readingTopic == "" {
		return nil
	}

	token := s.client.Subscribe(s.readingTopic, 1, s.handleReading)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to reading topic: %w", token.Error())
	}

	slog.Info("MQTT Subscriber: subscribed", "topic", s.readingTopic)
	return nil
}

// handleReading decodes a plant reading and writes it to the channel
func (s *Subscriber) handleReading(_ mqtt.Client, msg mqtt.Message) {
	reading, err := parseReadingPayload(msg.Topic(), msg.Payload(), time.Now())
	if err != nil {
		slog.Warn("MQTT Subscriber: discarding reading", "topic", msg.Topic(), "error", err)
		return
	}

	slog.Debug("MQTT Subscriber: received reading",
		"plant_id", reading.PlantID,
		"moisture", reading.Moisture,
		"humidity", reading.Humidity,
		"watering", reading.Watering)

	deliver(s.ReadingChan, reading, sendTimeout)
}

// deliver writes to ch, dropping the value if the channel stays full
func deliver(ch chan<- *models.Reading, reading *models.Reading, timeout time.Duration) bool {
	select {
	case ch <- reading:
		return true
	case <-time.After(timeout):
		slog.Warn("MQTT Subscriber: reading channel full, dropping message", "plant_id", reading.PlantID)
		return false
	}
}

// parseReadingPayload builds a reading from a topic and JSON payload. The
// timestamp comes from the payload when present, otherwise now is used.
func parseReadingPayload(topic string, payload []byte, now time.Time) (*models.Reading, error) {
	plantID := extractPlantID(topic)
	if plantID == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoPlantID, topic)
	}

	var p models.ReadingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}

	timestamp := now
	if p.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidReading, err)
		}
		timestamp = parsed
	}

	return &models.Reading{
		Timestamp:   timestamp,
		PlantID:     plantID,
		Day:         p.Day,
		Moisture:    p.Moisture,
		Humidity:    p.Humidity,
		Watering:    p.Watering,
		PlantHealth: p.PlantHealth,
	}, nil
}

// extractPlantID extracts the plant ID from an MQTT topic
// Example: "plant/fern-01/reading" -> "fern-01"
func extractPlantID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
