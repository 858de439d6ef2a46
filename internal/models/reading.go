package models

import "time"

// Column names used by scenario CSV files
const (
	ColumnDay         = "Day"
	ColumnMoisture    = "Moisture"
	ColumnHumidity    = "Humidity"
	ColumnWatering    = "Watering"
	ColumnPlantHealth = "PlantHealth"
)

// FeatureNames lists the model input columns in matrix column order
var FeatureNames = []string{ColumnMoisture, ColumnHumidity, ColumnWatering}

// NumFeatures is the width of a feature vector
const NumFeatures = 3

// Reading is one observation of a plant: soil moisture, air humidity,
// watering amount and the resulting health score
type Reading struct {
	Timestamp   time.Time `json:"timestamp,omitempty"`
	PlantID     string    `json:"plant_id,omitempty"`
	Day         int       `json:"day"`
	Moisture    float64   `json:"moisture"`     // Percentage
	Humidity    float64   `json:"humidity"`     // Percentage
	Watering    float64   `json:"watering"`     // 0-1
	PlantHealth float64   `json:"plant_health"` // Health score
}

// Features returns the feature vector in FeatureNames order
func (r Reading) Features() []float64 {
	return []float64{r.Moisture, r.Humidity, r.Watering}
}

// ReadingPayload represents the incoming reading MQTT message structure
type ReadingPayload struct {
	Day         int     `json:"day"`
	Moisture    float64 `json:"moisture"`
	Humidity    float64 `json:"humidity"`
	Watering    float64 `json:"watering"`
	PlantHealth float64 `json:"plant_health"`
	Timestamp   string  `json:"timestamp,omitempty"`
}
