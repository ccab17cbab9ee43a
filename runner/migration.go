package runner

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ridoystarlord/ormato/generator"
)

// Migration is one versioned migration file.
type Migration struct {
	Version   string
	Name      string
	Path      string
	CreatedAt time.Time
	Up        string
	Down      string
	Checksum  string

	// AppliedAt is set for migrations recorded as applied.
	AppliedAt time.Time
}

// Applied reports whether the migration is recorded as applied.
func (m Migration) Applied() bool { return !m.AppliedAt.IsZero() }

var fileNameRe = regexp.MustCompile(`^(\d{14})_(.+)\.sql$`)

// ErrNoMigrations is returned by LastVersion for an empty directory.
var ErrNoMigrations = errors.New("no migrations found")

// Init creates the migrations directory. It is a no-op when the directory
// already exists.
func Init(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating migrations folder: %w", err)
	}
	return nil
}

// Generate writes a new migration file stamped with now and returns it.
func Generate(dir, name string, up, down []string, now time.Time) (Migration, error) {
	if err := Init(dir); err != nil {
		return Migration{}, err
	}
	path, err := generator.WriteMigrationFile(dir, name, up, down, now)
	if err != nil {
		return Migration{}, err
	}
	return ReadMigration(path)
}

// Versions reads every migration file of dir, sorted by version. Files not
// named <version>_<name>.sql are ignored; two files with the same version
// are an error.
func Versions(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var migrations []Migration
	seen := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !fileNameRe.MatchString(e.Name()) {
			continue
		}
		m, err := ReadMigration(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if other, dup := seen[m.Version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %s", other, e.Name(), m.Version)
		}
		seen[m.Version] = e.Name()
		migrations = append(migrations, m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// LastVersion returns the newest version in dir.
func LastVersion(dir string) (string, error) {
	migrations, err := Versions(dir)
	if err != nil {
		return "", err
	}
	if len(migrations) == 0 {
		return "", ErrNoMigrations
	}
	return migrations[len(migrations)-1].Version, nil
}

// ReadMigration parses a single migration file.
func ReadMigration(path string) (Migration, error) {
	base := filepath.Base(path)
	match := fileNameRe.FindStringSubmatch(base)
	if match == nil {
		return Migration{}, fmt.Errorf("migration file %s is not named <version>_<name>.sql", base)
	}
	created, err := time.Parse(generator.VersionLayout, match[1])
	if err != nil {
		return Migration{}, fmt.Errorf("migration file %s has an invalid version: %w", base, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Migration{}, fmt.Errorf("read file %s: %w", base, err)
	}
	up, down, err := parseMigration(string(content))
	if err != nil {
		return Migration{}, fmt.Errorf("migration file %s: %w", base, err)
	}
	return Migration{
		Version:   match[1],
		Name:      match[2],
		Path:      path,
		CreatedAt: created,
		Up:        up,
		Down:      down,
		Checksum:  checksum(up, down),
	}, nil
}

// parseMigration splits file content into its up and down sections. Lines
// of '=' under a section marker are decoration.
func parseMigration(content string) (string, string, error) {
	parts := strings.SplitN(content, generator.DownMarker, 2)
	if len(parts) < 2 {
		return "", "", fmt.Errorf("does not contain rollback section")
	}
	upParts := strings.SplitN(parts[0], generator.UpMarker, 2)
	if len(upParts) < 2 {
		return "", "", fmt.Errorf("does not contain up migration section")
	}
	return section(upParts[1]), section(parts[1]), nil
}

func section(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") && strings.Trim(trimmed, "-= ") == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func checksum(up, down string) string {
	hash := sha256.Sum256([]byte(up + "\n-- down --\n" + down))
	return fmt.Sprintf("%x", hash)
}
