package main

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"plant-advisor/internal/database"
	"plant-advisor/internal/mqtt"
	"plant-advisor/internal/pipeline"
	"plant-advisor/internal/recommender"
	"plant-advisor/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Train once and serve recommendations for live plants",
	Long: `Train the health model from the configured CSV files, then ingest plant
readings over MQTT, store them in ClickHouse and periodically publish a
recommendation for every active plant.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	slog.Info("Starting Plant Advisor service (channel-based architecture)")

	// === Train ===
	fitted, err := pipeline.FitFiles(ctx, cfg.DataFiles, pipeline.NewConfig(cfg))
	if err != nil {
		return err
	}

	// === Initialize ClickHouse database ===
	db, err := database.NewClickHouseDB(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
	if err != nil {
		return err
	}
	defer db.Close()

	trainingRun := uuid.New()
	if err := db.SaveTrainingHistory(ctx, trainingRun, fitted.History); err != nil {
		slog.Warn("Serve: failed to save training history", "run_id", trainingRun, "error", err)
	}

	// === Initialize MQTT Client ===
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,

		PersistentSession: true,
	})
	if err != nil {
		return err
	}
	defer mqttClient.Close()

	// === Initialize Advisor Service ===
	advisor := fitted.Recommender(pipeline.NewRecommenderConfig(cfg), recommender.NewRandomSource(nil))
	advisorService := services.NewAdvisorService(db, advisor, services.AdvisorServiceConfig{
		PollingIntervalSeconds: cfg.PollIntervalSeconds,
		HistoryLength:          fitted.SeqLength,
		ChannelSize:            50,
	})

	plants, err := db.ActivePlants(ctx)
	if err != nil {
		return fmt.Errorf("failed to load plant registry: %w", err)
	}
	for _, plantID := range plants {
		advisorService.TrackPlant(plantID)
	}

	// === Initialize Ingest Service ===
	ingestService := services.NewIngestService(db, advisorService, services.DefaultIngestServiceConfig())

	// === Wire MQTT layer to services ===
	subscriber := mqtt.NewSubscriber(
		mqttClient.GetNativeClient(),
		mqtt.SubscriberConfig{ReadingTopic: cfg.MQTTTopicReading},
		ingestService.ReadingChan,
	)
	if err := subscriber.SubscribeAll(); err != nil {
		return err
	}

	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{RecommendationTopic: cfg.MQTTTopicRecommendation},
		advisorService.RecommendationChan,
	)

	var wg sync.WaitGroup
	for _, start := range []func(){
		func() { publisher.Start(ctx) },
		func() { advisorService.Start(ctx) },
		func() { ingestService.Start(ctx) },
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start()
		}()
	}

	slog.Info("Plant Advisor service is running",
		"reading_topic", cfg.MQTTTopicReading,
		"recommendation_topic", cfg.MQTTTopicRecommendation,
		"poll_interval_s", cfg.PollIntervalSeconds,
		"tracked_plants", len(plants))

	// === Wait for interrupt signal ===
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping services")
	wg.Wait()

	slog.Info("Shutdown complete")
	return nil
}
