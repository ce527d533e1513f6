package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
)

var _ ports.ProgramStore = (*Store)(nil)

// document is the on-disk form of a program.
type document struct {
	Name    string    `json:"name"`
	SavedAt time.Time `json:"saved_at"`
	Clauses []string  `json:"clauses"`
}

// Store implements ports.ProgramStore using the local filesystem.
// Each program is one JSON file in the base directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".logicbridge/programs".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".logicbridge", "programs")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("program name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid program name %q", name)
	}
	return filepath.Join(s.BasePath, name+".json"), nil
}

// Save writes the program atomically: temp file, fsync, then rename over the destination.
func (s *Store) Save(ctx context.Context, name string, clauses []string) error {
	destPath, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure program directory: %w", err)
	}

	data, err := json.MarshalIndent(document{
		Name:    name,
		SavedAt: time.Now().UTC(),
		Clauses: slices.Clone(clauses),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal program: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+name+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename does not replace an existing file on Windows.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing program file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads a program file.
func (s *Store) Load(ctx context.Context, name string) ([]string, error) {
	filePath, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrProgramNotFound
		}
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal program %s: %w", name, err)
	}
	if doc.Clauses == nil {
		doc.Clauses = []string{}
	}
	return doc.Clauses, nil
}

// Delete removes the program file.
func (s *Store) Delete(ctx context.Context, name string) error {
	filePath, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete program file: %w", err)
	}
	return nil
}

// List returns the names of the stored programs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		fname := entry.Name()
		if entry.IsDir() || filepath.Ext(fname) != ".json" || strings.HasPrefix(fname, "tmp-") {
			continue
		}
		names = append(names, strings.TrimSuffix(fname, ".json"))
	}
	return names, nil
}
