package database

// SQL schemas for all ClickHouse tables

const (
	// PlantReadingsTableSQL creates the plant_readings table
	PlantReadingsTableSQL = `
		CREATE TABLE IF NOT EXISTS plant_readings (
			timestamp DateTime64(3),
			plant_id String,
			day Int32,
			moisture Float64,
			humidity Float64,
			watering Float64,
			plant_health Float64
		) ENGINE = MergeTree()
		ORDER BY (plant_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// PlantRegistryTableSQL creates the plant_registry table
	PlantRegistryTableSQL = `
		CREATE TABLE IF NOT EXISTS plant_registry (
			plant_id String,
			name String,
			location String,
			registered_at DateTime64(3),
			last_seen DateTime64(3),
			is_active Bool
		) ENGINE = ReplacingMergeTree(last_seen)
		ORDER BY plant_id
	`

	// RecommendationsTableSQL creates the recommendations table
	RecommendationsTableSQL = `
		CREATE TABLE IF NOT EXISTS recommendations (
			run_id UUID,
			timestamp DateTime64(3),
			plant_id String,
			moisture Float64,
			humidity Float64,
			watering Float64,
			expected_health Float64,
			scaled_score Float64,
			samples UInt32
		) ENGINE = MergeTree()
		ORDER BY (plant_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// TrainingEpochsTableSQL creates the training_epochs table
	TrainingEpochsTableSQL = `
		CREATE TABLE IF NOT EXISTS training_epochs (
			run_id UUID,
			recorded_at DateTime64(3),
			epoch UInt32,
			loss Float64,
			val_loss Float64,
			has_validation Bool
		) ENGINE = MergeTree()
		ORDER BY (run_id, epoch)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		PlantReadingsTableSQL,
		PlantRegistryTableSQL,
		RecommendationsTableSQL,
		TrainingEpochsTableSQL,
	}
}
