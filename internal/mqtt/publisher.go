package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"plant-advisor/internal/models"
)

// Publisher handles MQTT publishing from channels
type Publisher struct {
	client mqtt.Client

	// Input channel (read by publisher, written by the advisor service)
	RecommendationChan chan *models.Recommendation

	recommendationTopic string // e.g., "plant/{plant_id}/recommendation"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	RecommendationTopic string
}

// NewPublisher creates a new MQTT publisher with channels
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	recommendationChan chan *models.Recommendation,
) *Publisher {
	return &Publisher{
		client:              client,
		RecommendationChan:  recommendationChan,
		recommendationTopic: config.RecommendationTopic,
	}
}

// Start begins publishing recommendations from the channel
// Runs until context is cancelled or channel is closed
func (p *Publisher) Start(ctx context.Context) {
	slog.Info("MQTT Publisher: starting")

	for {
		select {
		case <-ctx.Done():
			slog.Info("MQTT Publisher: context cancelled, shutting down")
			return

		case rec, ok := <-p.RecommendationChan:
			if !ok {
				slog.Info("MQTT Publisher: recommendation channel closed, shutting down")
				return
			}

			if err := p.Publish(rec); err != nil {
				slog.Error("MQTT Publisher: failed to publish recommendation", "error", err)
			}
		}
	}
}

// Publish sends one recommendation synchronously
func (p *Publisher) Publish(rec *models.Recommendation) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}

	topic := formatTopic(p.recommendationTopic, rec.PlantID)

	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish recommendation: %w", token.Error())
	}

	slog.Info("MQTT Publisher: published recommendation", "plant_id", rec.PlantID, "topic", topic)
	return nil
}

// formatTopic replaces the {plant_id} placeholder with the actual plant ID
func formatTopic(topicPattern, plantID string) string {
	return strings.ReplaceAll(topicPattern, "{plant_id}", plantID)
}
