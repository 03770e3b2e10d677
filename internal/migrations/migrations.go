package migrations

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed sql/*.sql
var embedded embed.FS

const initialSchemaFile = "001_status_reports.sql"

var (
	// MigrationsDir can be overridden in tests or by the application. When a
	// schema file exists there it takes precedence over the embedded copy.
	MigrationsDir = ""
)

// GetInitialSchema returns the initial database schema
func GetInitialSchema() (string, error) {
	if MigrationsDir != "" {
		content, err := os.ReadFile(filepath.Join(MigrationsDir, initialSchemaFile))
		if err == nil {
			return string(content), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read schema from %s: %w", MigrationsDir, err)
		}
	}

	content, err := embedded.ReadFile("sql/" + initialSchemaFile)
	if err != nil {
		return "", fmt.Errorf("could not read embedded schema: %w", err)
	}
	return string(content), nil
}
