package database

import "testing"

func TestMigrationsAreSequential(t *testing.T) {
	for i, m := range Migrations {
		if m.Version != i+1 {
			t.Fatalf("migration %d has version %d", i, m.Version)
		}
		if m.Up == "" {
			t.Errorf("migration %d has no SQL", m.Version)
		}
	}
	if got := LatestVersion(); got != len(Migrations) {
		t.Errorf("LatestVersion() = %d, want %d", got, len(Migrations))
	}
}
