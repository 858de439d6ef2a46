package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Training data
	DataFiles    []string
	SeqLength    int
	TestFraction float64

	// Model hyperparameters
	Epochs       int
	BatchSize    int
	LearningRate float64
	LSTMUnits    int
	DenseUnits   int
	Dropout      float64
	TrainSeed    uint64

	// Recommendation search
	NumSamples  int
	MoistureMin float64
	MoistureMax float64
	HumidityMin float64
	HumidityMax float64
	WateringMin float64
	WateringMax float64

	// MQTT Configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	MQTTTopicReading        string
	MQTTTopicRecommendation string

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// Result sinks for the recommend command
	StoreResults   bool
	PublishResults bool

	// Serve mode
	PollIntervalSeconds int

	LogLevel string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		DataFiles: getEnvList("DATA_FILES", []string{
			"scenario1.csv", "scenario2.csv", "scenario3.csv", "scenario4.csv", "scenario5.csv",
		}),
		SeqLength:    getEnvInt("SEQ_LENGTH", 5),
		TestFraction: getEnvFloat("TEST_FRACTION", 0.2),

		Epochs:       getEnvInt("EPOCHS", 40),
		BatchSize:    getEnvInt("BATCH_SIZE", 16),
		LearningRate: getEnvFloat("LEARNING_RATE", 0.001),
		LSTMUnits:    getEnvInt("LSTM_UNITS", 64),
		DenseUnits:   getEnvInt("DENSE_UNITS", 32),
		Dropout:      getEnvFloat("DROPOUT", 0.2),
		TrainSeed:    getEnvUint64("TRAIN_SEED", 42),

		NumSamples:  getEnvInt("NUM_SAMPLES", 100),
		MoistureMin: getEnvFloat("MOISTURE_MIN", 50),
		MoistureMax: getEnvFloat("MOISTURE_MAX", 70),
		HumidityMin: getEnvFloat("HUMIDITY_MIN", 55),
		HumidityMax: getEnvFloat("HUMIDITY_MAX", 75),
		WateringMin: getEnvFloat("WATERING_MIN", 0.0),
		WateringMax: getEnvFloat("WATERING_MAX", 1.0),

		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "plant-advisor"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		MQTTTopicReading:        getEnv("MQTT_TOPIC_READING", "plant/+/reading"),
		MQTTTopicRecommendation: getEnv("MQTT_TOPIC_RECOMMENDATION", "plant/{plant_id}/recommendation"),

		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "plants"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		StoreResults:   getEnvBool("STORE_RESULTS", false),
		PublishResults: getEnvBool("PUBLISH_RESULTS", false),

		PollIntervalSeconds: getEnvInt("POLL_INTERVAL_SECONDS", 300),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("failed to parse env var as int, using default", "key", key, "error", err)
		return defaultValue
	}
	return intValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	uintValue, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		slog.Warn("failed to parse env var as uint64, using default", "key", key, "error", err)
		return defaultValue
	}
	return uintValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("failed to parse env var as float, using default", "key", key, "error", err)
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("failed to parse env var as bool, using default", "key", key, "error", err)
		return defaultValue
	}
	return boolValue
}

// getEnvList splits a comma-separated value, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
