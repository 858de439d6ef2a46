package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"plant-advisor/internal/models"
)

// Advisor produces a recommendation from a plant's recent readings
type Advisor interface {
	Recommend(ctx context.Context, history []models.Reading) (*models.Recommendation, error)
}

// AdvisorStore is the storage used by the advisor service
type AdvisorStore interface {
	RecentReadings(ctx context.Context, plantID string, n int) ([]models.Reading, error)
	SaveRecommendation(ctx context.Context, rec *models.Recommendation) error
}

// AdvisorService polls storage for every tracked plant, runs the random
// search on its latest readings and forwards the result to the publisher.
type AdvisorService struct {
	store   AdvisorStore
	advisor Advisor

	// Configuration
	pollingInterval time.Duration
	historyLength   int
	sendTimeout     time.Duration

	// Output channel for recommendations
	RecommendationChan chan *models.Recommendation

	// Internal state
	mu            sync.RWMutex
	trackedPlants map[string]bool
}

// AdvisorServiceConfig holds configuration for advisor service
type AdvisorServiceConfig struct {
	PollingIntervalSeconds int // How often to refresh recommendations
	HistoryLength          int // Readings loaded per plant, normally the window length
	ChannelSize            int // Size of recommendation channel
}

// DefaultAdvisorServiceConfig returns default configuration
func DefaultAdvisorServiceConfig() AdvisorServiceConfig {
	return AdvisorServiceConfig{
		PollingIntervalSeconds: 300,
		HistoryLength:          5,
		ChannelSize:            50,
	}
}

// NewAdvisorService creates a new polling advisor service
func NewAdvisorService(store AdvisorStore, advisor Advisor, config AdvisorServiceConfig) *AdvisorService {
	if config.PollingIntervalSeconds <= 0 {
		config.PollingIntervalSeconds = DefaultAdvisorServiceConfig().PollingIntervalSeconds
	}

	return &AdvisorService{
		store:              store,
		advisor:            advisor,
		pollingInterval:    time.Duration(config.PollingIntervalSeconds) * time.Second,
		historyLength:      config.HistoryLength,
		sendTimeout:        1 * time.Second,
		RecommendationChan: make(chan *models.Recommendation, config.ChannelSize),
		trackedPlants:      make(map[string]bool),
	}
}

// Start begins the polling loop
func (as *AdvisorService) Start(ctx context.Context) {
	slog.Info("AdvisorService: starting polling loop",
		"interval", as.pollingInterval,
		"history_length", as.historyLength)

	ticker := time.NewTicker(as.pollingInterval)
	defer ticker.Stop()

	// Initial poll
	as.pollAllPlants(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("AdvisorService: shutting down")
			close(as.RecommendationChan)
			return
		case <-ticker.C:
			as.pollAllPlants(ctx)
		}
	}
}

// pollAllPlants refreshes the recommendation of every tracked plant
func (as *AdvisorService) pollAllPlants(ctx context.Context) {
	plants := as.TrackedPlants()
	if len(plants) == 0 {
		return
	}

	slog.Debug("AdvisorService: polling plants", "count", len(plants))

	for _, plantID := range plants {
		if ctx.Err() != nil {
			return
		}
		as.checkPlant(ctx, plantID)
	}
}

// checkPlant recommends for a single plant and forwards the result
func (as *AdvisorService) checkPlant(ctx context.Context, plantID string) {
	history, err := as.store.RecentReadings(ctx, plantID, as.historyLength)
	if err != nil {
		slog.Error("AdvisorService: failed to load readings", "plant_id", plantID, "error", err)
		return
	}
	if len(history) == 0 {
		slog.Debug("AdvisorService: no readings yet, skipping", "plant_id", plantID)
		return
	}

	rec, err := as.advisor.Recommend(ctx, history)
	if err != nil {
		slog.Error("AdvisorService: recommendation failed", "plant_id", plantID, "error", err)
		return
	}
	rec.PlantID = plantID

	if err := as.store.SaveRecommendation(ctx, rec); err != nil {
		slog.Error("AdvisorService: failed to save recommendation", "plant_id", plantID, "error", err)
	}

	select {
	case as.RecommendationChan <- rec:
		slog.Info("AdvisorService: recommendation ready",
			"plant_id", plantID,
			"moisture", rec.Moisture,
			"humidity", rec.Humidity,
			"watering", rec.Watering,
			"expected_health", rec.ExpectedHealth)
	case <-time.After(as.sendTimeout):
		slog.Warn("AdvisorService: recommendation channel full, dropping", "plant_id", plantID)
	}
}

// TrackPlant adds a plant to the polling list
func (as *AdvisorService) TrackPlant(plantID string) {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.trackedPlants[plantID] {
		as.trackedPlants[plantID] = true
		slog.Info("AdvisorService: now tracking plant", "plant_id", plantID)
	}
}

// TrackedPlants returns all tracked plant IDs in sorted order
func (as *AdvisorService) TrackedPlants() []string {
	as.mu.RLock()
	defer as.mu.RUnlock()

	plants := make([]string, 0, len(as.trackedPlants))
	for plantID := range as.trackedPlants {
		plants = append(plants, plantID)
	}
	slices.Sort(plants)
	return plants
}
