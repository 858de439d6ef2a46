package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"plant-advisor/internal/models"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(ctx context.Context, addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	slog.Info("Database: connected to ClickHouse", "addr", addr, "database", database)

	db := &ClickHouseDB{conn: conn}

	if err := db.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	slog.Info("Database: schema initialized")
	return nil
}

// SaveReading saves a plant reading to the database
func (db *ClickHouseDB) SaveReading(ctx context.Context, reading *models.Reading) error {
	query := `
		INSERT INTO plant_readings (timestamp, plant_id, day, moisture, humidity, watering, plant_health)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		reading.Timestamp,
		reading.PlantID,
		int32(reading.Day),
		reading.Moisture,
		reading.Humidity,
		reading.Watering,
		reading.PlantHealth,
	)

	if err != nil {
		return fmt.Errorf("failed to insert plant reading: %w", err)
	}

	return nil
}

// UpsertPlant inserts or updates a plant in the registry
func (db *ClickHouseDB) UpsertPlant(ctx context.Context, plant *models.Plant) error {
	query := `
		INSERT INTO plant_registry (plant_id, name, location, registered_at, last_seen, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		plant.PlantID,
		plant.Name,
		plant.Location,
		plant.RegisteredAt,
		plant.LastSeen,
		plant.IsActive,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert plant: %w", err)
	}

	return nil
}

// ActivePlants returns the ids of registered plants marked active
func (db *ClickHouseDB) ActivePlants(ctx context.Context) ([]string, error) {
	query := `
		SELECT plant_id
		FROM plant_registry FINAL
		WHERE is_active
		ORDER BY plant_id
	`

	rows, err := db.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plant registry: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan plant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecentReadings returns the last n readings of a plant in chronological order
func (db *ClickHouseDB) RecentReadings(ctx context.Context, plantID string, n int) ([]models.Reading, error) {
	if n <= 0 {
		return nil, nil
	}

	query := `
		SELECT timestamp, plant_id, day, moisture, humidity, watering, plant_health
		FROM plant_readings
		WHERE plant_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	readings, err := db.queryReadings(ctx, query, plantID, n)
	if err != nil {
		return nil, err
	}
	slices.Reverse(readings)
	return readings, nil
}

func (db *ClickHouseDB) queryReadings(ctx context.Context, query string, args ...any) ([]models.Reading, error) {
	rows, err := db.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plant readings: %w", err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var (
			r   models.Reading
			day int32
		)
		if err := rows.Scan(&r.Timestamp, &r.PlantID, &day, &r.Moisture, &r.Humidity, &r.Watering, &r.PlantHealth); err != nil {
			return nil, fmt.Errorf("failed to scan plant reading: %w", err)
		}
		r.Day = int(day)
		readings = append(readings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plant readings: %w", err)
	}
	return readings, nil
}

// SaveRecommendation saves the best candidate of a search run
func (db *ClickHouseDB) SaveRecommendation(ctx context.Context, rec *models.Recommendation) error {
	query := `
		INSERT INTO recommendations (run_id, timestamp, plant_id, moisture, humidity, watering, expected_health, scaled_score, samples)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		rec.RunID,
		rec.Timestamp,
		rec.PlantID,
		rec.Moisture,
		rec.Humidity,
		rec.Watering,
		rec.ExpectedHealth,
		rec.ScaledScore,
		uint32(len(rec.Trials)),
	)

	if err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}

	slog.Debug("Database: saved recommendation", "run_id", rec.RunID, "plant_id", rec.PlantID)
	return nil
}

// SaveTrainingHistory writes one row per epoch in a single batch
func (db *ClickHouseDB) SaveTrainingHistory(ctx context.Context, runID uuid.UUID, history models.TrainingHistory) error {
	if len(history.Epochs) == 0 {
		return nil
	}

	batch, err := db.conn.PrepareBatch(ctx, "INSERT INTO training_epochs")
	if err != nil {
		return fmt.Errorf("failed to prepare training history batch: %w", err)
	}

	now := time.Now()
	for _, e := range history.Epochs {
		if err := batch.Append(runID, now, uint32(e.Epoch), e.Loss, e.ValLoss, history.HasValidation); err != nil {
			return fmt.Errorf("failed to append epoch %d: %w", e.Epoch, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert training history: %w", err)
	}
	return nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		slog.Info("Database: ClickHouse connection closed")
	}
	return nil
}
