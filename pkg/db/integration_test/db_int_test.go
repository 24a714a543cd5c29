package test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/db"
	"github.com/alexsears/tentOS/pkg/models"
)

func TestFileDatabaseInDataDir(t *testing.T) {
	common.SetTestLoggerNop()

	if os.Getenv(common.EnvKeyRunIntegrationTests) != "true" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS environment variable not set")
	}

	dataDir := t.TempDir()
	expectedPath := filepath.Join(dataDir, "tent_garden.db")

	instance := db.GetInstance(db.UseSqliteDialector(dataDir))
	if instance == nil || instance.Conn == nil {
		t.Fatal("Expected non-nil DB connection")
	}

	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Errorf("Expected database file to be created at %s", expectedPath)
	}

	row := models.SensorHistory{TentID: "tent_a", SensorType: "temperature", Value: 24.5}
	if err := instance.Conn.Create(&row).Error; err != nil {
		t.Fatalf("insert history row: %v", err)
	}
	if row.ID == 0 {
		t.Error("expected autoincrement id to be assigned")
	}
}
