package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllTables(t *testing.T) {
	tables := AllTables()
	assert.Len(t, tables, 4)

	for _, name := range []string{"plant_readings", "plant_registry", "recommendations", "training_epochs"} {
		found := false
		for _, sql := range tables {
			if strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+name+" (") {
				found = true
			}
		}
		assert.True(t, found, "missing table %s", name)
	}
}

func TestReadingsTableOrdersByPlantAndTime(t *testing.T) {
	assert.Contains(t, PlantReadingsTableSQL, "ORDER BY (plant_id, timestamp)")
	assert.Contains(t, PlantRegistryTableSQL, "ReplacingMergeTree(last_seen)")
}
