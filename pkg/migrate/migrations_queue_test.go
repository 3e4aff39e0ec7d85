package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/treumlabs/signalcast/pkg/migrate"
)

func TestQueueMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_queue_items.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no queue_items migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS queue_items",
		"CHECK (priority BETWEEN 1 AND 4)",
		"CHECK (retry_count >= 0)",
		"idx_queue_items_content_hash",
		"idx_queue_items_status_platform",
		"idx_queue_items_scheduled_for",
		"DROP TABLE IF EXISTS queue_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}
