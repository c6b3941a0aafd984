// Package file provides a trace store that writes execution traces to
// the local filesystem.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.TraceStore = (*Store)(nil)

// Store writes one JSON file per trace, named by date and a short
// unique suffix so concurrent runs never collide.
type Store struct {
	dir string
}

// NewStore creates a trace store writing into dir. If dir is empty,
// defaults to ~/.inquest/traces.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".inquest", "traces")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save persists the trace as JSON and returns the file path.
func (s *Store) Save(_ context.Context, trace *domain.Trace) (string, error) {
	data, err := trace.JSON()
	if err != nil {
		return "", fmt.Errorf("serializing trace: %w", err)
	}

	name := fmt.Sprintf("trace-%s-%s.json",
		time.Now().Format("20060102-150405"),
		uuid.NewString()[:8])
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("writing trace file: %w", err)
	}
	return path, nil
}

// SaveReport persists the citation report as both Markdown and JSON,
// returning the Markdown path.
func (s *Store) SaveReport(_ context.Context, report *domain.CitationReport) (string, error) {
	stamp := fmt.Sprintf("%s-%s",
		time.Now().Format("20060102-150405"),
		uuid.NewString()[:8])

	mdPath := filepath.Join(s.dir, fmt.Sprintf("citations-%s.md", stamp))
	if err := os.WriteFile(mdPath, []byte(report.Markdown()), 0600); err != nil {
		return "", fmt.Errorf("writing citation report: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing citation report: %w", err)
	}
	jsonPath := filepath.Join(s.dir, fmt.Sprintf("citations-%s.json", stamp))
	if err := os.WriteFile(jsonPath, data, 0600); err != nil {
		return "", fmt.Errorf("writing citation report: %w", err)
	}

	return mdPath, nil
}

// Dir returns the directory traces are written to.
func (s *Store) Dir() string {
	return s.dir
}
