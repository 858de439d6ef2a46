package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"plant-advisor/internal/database"
	"plant-advisor/internal/dataset"
	"plant-advisor/internal/models"
	"plant-advisor/internal/mqtt"
	"plant-advisor/internal/pipeline"
	"plant-advisor/internal/recommender"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Train on scenario files and print one recommendation",
	Long: `Train the health model on the given CSV files, then sample candidate
readings and print the one with the highest predicted health score.`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

var recommendFlags struct {
	data      []string
	history   string
	historyDB bool
	plantID   string
	seed      uint64
	store     bool
	publish   bool
}

func init() {
	f := recommendCmd.Flags()
	f.StringSliceVar(&recommendFlags.data, "data", nil, "training CSV files (default from DATA_FILES)")
	f.StringVar(&recommendFlags.history, "history", "", "CSV file with the plant's recent readings")
	f.BoolVar(&recommendFlags.historyDB, "history-db", false, "load the plant's recent readings from ClickHouse")
	f.StringVar(&recommendFlags.plantID, "plant-id", "default", "plant id attached to stored and published results")
	f.Uint64Var(&recommendFlags.seed, "seed", 0, "seed for candidate sampling (random when unset)")
	f.BoolVar(&recommendFlags.store, "store", false, "save the recommendation and training history to ClickHouse")
	f.BoolVar(&recommendFlags.publish, "publish", false, "publish the recommendation over MQTT")

	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	files := cfg.DataFiles
	if len(recommendFlags.data) > 0 {
		files = recommendFlags.data
	}

	fitted, err := pipeline.FitFiles(ctx, files, pipeline.NewConfig(cfg))
	if err != nil {
		return err
	}

	history, err := loadHistory(cmd, fitted.SeqLength)
	if err != nil {
		return err
	}

	var seed *uint64
	if cmd.Flags().Changed("seed") {
		seed = &recommendFlags.seed
	}

	rec, err := fitted.Recommender(pipeline.NewRecommenderConfig(cfg), recommender.NewRandomSource(seed)).
		Recommend(ctx, history)
	if err != nil {
		return fmt.Errorf("failed to recommend: %w", err)
	}
	rec.PlantID = recommendFlags.plantID

	printRecommendation(cmd.OutOrStdout(), rec)

	if recommendFlags.store || cfg.StoreResults {
		if err := storeRecommendation(cmd, fitted, rec); err != nil {
			return err
		}
	}

	if recommendFlags.publish || cfg.PublishResults {
		if err := publishRecommendation(rec); err != nil {
			return err
		}
	}

	return nil
}

// loadHistory picks the plant history: ClickHouse, a CSV file or the built-in default
func loadHistory(cmd *cobra.Command, seqLength int) ([]models.Reading, error) {
	switch {
	case recommendFlags.historyDB:
		db, err := openDB(cmd)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		history, err := db.RecentReadings(cmd.Context(), recommendFlags.plantID, seqLength-1)
		if err != nil {
			return nil, err
		}
		if len(history) == 0 {
			return nil, fmt.Errorf("no stored readings for plant %q", recommendFlags.plantID)
		}
		return history, nil

	case recommendFlags.history != "":
		return dataset.LoadCSV(recommendFlags.history)

	default:
		return recommender.DefaultHistory(), nil
	}
}

func openDB(cmd *cobra.Command) (*database.ClickHouseDB, error) {
	return database.NewClickHouseDB(cmd.Context(), cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
}

// printRecommendation writes the four result lines
func printRecommendation(w io.Writer, rec *models.Recommendation) {
	fmt.Fprintf(w, "Suggested Moisture: %.2f\n", rec.Moisture)
	fmt.Fprintf(w, "Suggested Humidity: %.2f\n", rec.Humidity)
	fmt.Fprintf(w, "Suggested Watering: %.2f\n", rec.Watering)
	fmt.Fprintf(w, "Expected Health Score: %.2f\n", rec.ExpectedHealth)
}

func storeRecommendation(cmd *cobra.Command, fitted *pipeline.Fitted, rec *models.Recommendation) error {
	ctx := cmd.Context()

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveTrainingHistory(ctx, rec.RunID, fitted.History); err != nil {
		return err
	}
	if err := db.SaveRecommendation(ctx, rec); err != nil {
		return err
	}

	slog.Info("Recommend: stored results", "run_id", rec.RunID)
	return nil
}

func publishRecommendation(rec *models.Recommendation) error {
	client, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID + "-recommend",
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	publisher := mqtt.NewPublisher(
		client.GetNativeClient(),
		mqtt.PublisherConfig{RecommendationTopic: cfg.MQTTTopicRecommendation},
		nil,
	)
	return publisher.Publish(rec)
}
