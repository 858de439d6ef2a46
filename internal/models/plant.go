package models

import "time"

// Plant is a registry entry for a monitored plant sensor node
type Plant struct {
	PlantID      string    `json:"plant_id"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"last_seen"`
	IsActive     bool      `json:"is_active"`
}
