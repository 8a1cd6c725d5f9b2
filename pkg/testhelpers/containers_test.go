//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_SchemaMigrated(t *testing.T) {
	testDB := GetTestDB(t)
	testDB.Reset(t)

	ctx := context.Background()

	var tableCount int
	err := testDB.DB.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1", Schema).
		Scan(&tableCount)
	if err != nil {
		t.Fatalf("failed to count tables: %v", err)
	}

	if tableCount != 8 {
		t.Errorf("expected 8 tables in schema %s, got %d", Schema, tableCount)
	}
}

func TestTestDB_ResetSeedsLookups(t *testing.T) {
	testDB := GetTestDB(t)
	testDB.Reset(t)

	ctx := context.Background()

	tests := []struct {
		table    string
		expected int
	}{
		{"continents", 2},
		{"countries", 2},
		{"plants", 0},
		{"recordings", 0},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			var count int
			err := testDB.DB.QueryRow(ctx, "SELECT COUNT(*) FROM gamma."+tt.table).Scan(&count)
			if err != nil {
				t.Fatalf("failed to count %s: %v", tt.table, err)
			}
			if count != tt.expected {
				t.Errorf("expected %d rows in %s, got %d", tt.expected, tt.table, count)
			}
		})
	}
}
