package models

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is a synthesized reading evaluated during the search
type Candidate struct {
	Moisture float64 `json:"moisture"`
	Humidity float64 `json:"humidity"`
	Watering float64 `json:"watering"`
}

// Features returns the candidate as a feature vector in FeatureNames order
func (c Candidate) Features() []float64 {
	return []float64{c.Moisture, c.Humidity, c.Watering}
}

// Trial records one evaluated candidate and its scaled predicted score
type Trial struct {
	Candidate   Candidate `json:"candidate"`
	ScaledScore float64   `json:"scaled_score"`
}

// Recommendation is the best candidate found by the search, in original units
type Recommendation struct {
	RunID          uuid.UUID `json:"run_id"`
	PlantID        string    `json:"plant_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Moisture       float64   `json:"moisture"`
	Humidity       float64   `json:"humidity"`
	Watering       float64   `json:"watering"`
	ExpectedHealth float64   `json:"expected_health"`
	ScaledScore    float64   `json:"scaled_score"`
	Trials         []Trial   `json:"-"`
}
