package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// VersionLayout formats migration versions: a 14-digit UTC timestamp.
const VersionLayout = "20060102150405"

// Section markers of a migration file.
const (
	UpMarker   = "-- Up Migration"
	DownMarker = "-- Down Migration (Rollback)"
)

// Version returns the migration version for t.
func Version(t time.Time) string {
	return t.UTC().Format(VersionLayout)
}

// FileName returns <version>_<name>.sql with name reduced to lower-case
// letters, digits and underscores.
func FileName(version, name string) string {
	return fmt.Sprintf("%s_%s.sql", version, sanitizeName(name))
}

func sanitizeName(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	s := strings.TrimSuffix(b.String(), "_")
	if s == "" {
		return "migration"
	}
	return s
}

// RenderMigration renders the content of a migration file with up and down
// sections. Statements are terminated with a semicolon.
func RenderMigration(version, name string, up, down []string) string {
	var b strings.Builder
	b.WriteString("-- Migration: " + version + "\n")
	b.WriteString("-- Description: " + name + "\n\n")

	b.WriteString(UpMarker + "\n")
	b.WriteString("-- ============\n")
	for _, stmt := range up {
		b.WriteString(terminate(stmt) + "\n")
	}

	b.WriteString("\n" + DownMarker + "\n")
	b.WriteString("-- =======================\n")
	for _, stmt := range down {
		b.WriteString(terminate(stmt) + "\n")
	}
	return b.String()
}

func terminate(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if strings.HasSuffix(stmt, ";") {
		return stmt
	}
	return stmt + ";"
}

// WriteMigrationFile saves the statements into a timestamped .sql file in
// dir with up/down sections and returns its path. An existing file with
// the same name is never overwritten.
func WriteMigrationFile(dir, name string, up, down []string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations folder: %w", err)
	}

	version := Version(now)
	path := filepath.Join(dir, FileName(version, name))
	content := RenderMigration(version, name, up, down)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	return path, nil
}
