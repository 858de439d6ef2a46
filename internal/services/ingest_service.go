package services

import (
	"context"
	"log/slog"
	"time"

	"plant-advisor/internal/models"
)

// ReadingStore is the storage used by the ingest service
type ReadingStore interface {
	SaveReading(ctx context.Context, reading *models.Reading) error
	UpsertPlant(ctx context.Context, plant *models.Plant) error
}

// PlantTracker is notified of every plant that reports a reading
type PlantTracker interface {
	TrackPlant(plantID string)
}

// IngestService persists incoming readings and registers their plants
type IngestService struct {
	store   ReadingStore
	tracker PlantTracker

	// Input channel from the MQTT subscriber
	ReadingChan chan *models.Reading

	// First-seen time per plant, owned by the processing goroutine
	registeredAt map[string]time.Time
	now          func() time.Time
}

// IngestServiceConfig holds configuration for ingest service
type IngestServiceConfig struct {
	ReadingChannelSize int
}

// DefaultIngestServiceConfig returns default configuration
func DefaultIngestServiceConfig() IngestServiceConfig {
	return IngestServiceConfig{
		ReadingChannelSize: 100,
	}
}

// NewIngestService creates a new ingest service
func NewIngestService(store ReadingStore, tracker PlantTracker, config IngestServiceConfig) *IngestService {
	return &IngestService{
		store:        store,
		tracker:      tracker,
		ReadingChan:  make(chan *models.Reading, config.ReadingChannelSize),
		registeredAt: make(map[string]time.Time),
		now:          time.Now,
	}
}

// Start processes readings until the context is cancelled or the channel closes
func (s *IngestService) Start(ctx context.Context) {
	slog.Info("IngestService: starting")

	for {
		select {
		case <-ctx.Done():
			slog.Info("IngestService: shutting down")
			return
		case reading, ok := <-s.ReadingChan:
			if !ok {
				slog.Info("IngestService: reading channel closed, shutting down")
				return
			}
			s.processReading(ctx, reading)
		}
	}
}

// processReading handles a single plant reading
func (s *IngestService) processReading(ctx context.Context, reading *models.Reading) {
	if reading.Timestamp.IsZero() {
		reading.Timestamp = s.now()
	}

	if err := s.store.SaveReading(ctx, reading); err != nil {
		slog.Error("IngestService: failed to save reading", "plant_id", reading.PlantID, "error", err)
		return
	}

	slog.Debug("IngestService: saved reading",
		"plant_id", reading.PlantID,
		"day", reading.Day,
		"plant_health", reading.PlantHealth)

	s.registerPlant(ctx, reading.PlantID, reading.Timestamp)
}

// registerPlant auto-registers a plant and refreshes its last-seen time
func (s *IngestService) registerPlant(ctx context.Context, plantID string, seen time.Time) {
	first, ok := s.registeredAt[plantID]
	if !ok {
		first = seen
		s.registeredAt[plantID] = first
	}

	plant := &models.Plant{
		PlantID:      plantID,
		Name:         plantID,
		Location:     "Unknown",
		RegisteredAt: first,
		LastSeen:     seen,
		IsActive:     true,
	}

	// Best effort - don't fail if registration fails
	if err := s.store.UpsertPlant(ctx, plant); err != nil {
		slog.Warn("IngestService: failed to register plant", "plant_id", plantID, "error", err)
	}

	if s.tracker != nil {
		s.tracker.TrackPlant(plantID)
	}
}
