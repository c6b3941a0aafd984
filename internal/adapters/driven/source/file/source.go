// Package file provides a record source that loads JSON collections
// from the local filesystem.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/inquest-cli/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.RecordSource = (*Source)(nil)

// wrapperKeys are object keys checked, in order, when the top-level
// JSON value is an object instead of an array. Discord exports wrap
// messages, Slack exports wrap messages per channel, generic exports
// often use records/data/items.
var wrapperKeys = []string{"messages", "records", "data", "items", "results", "entries"}

// maxLineBytes bounds a single JSONL line (16 MiB).
const maxLineBytes = 16 * 1024 * 1024

// Source loads record collections from JSON and JSONL files.
type Source struct{}

// NewSource creates a file-backed record source.
func NewSource() *Source {
	return &Source{}
}

// Load reads the collection at path. Supported layouts:
//   - a JSON array of objects
//   - a JSON object wrapping an array (messages/records/data/...)
//   - a JSONL stream, one object per line
func (s *Source) Load(ctx context.Context, path string) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return s.loadJSONL(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	trimmed := strings.TrimLeftFunc(string(data), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	switch {
	case strings.HasPrefix(trimmed, "["):
		var records []domain.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parsing JSON array in %s: %w", path, err)
		}
		return records, nil

	case strings.HasPrefix(trimmed, "{"):
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("parsing JSON object in %s: %w", path, err)
		}
		for _, key := range wrapperKeys {
			raw, ok := wrapper[key]
			if !ok {
				continue
			}
			var records []domain.Record
			if err := json.Unmarshal(raw, &records); err != nil {
				continue
			}
			logger.Debug("Unwrapped records from %q key", key)
			return records, nil
		}
		// A flat object becomes a single-record collection.
		var record domain.Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("parsing JSON object in %s: %w", path, err)
		}
		return []domain.Record{record}, nil

	default:
		return nil, fmt.Errorf("%w: %s is not a JSON array or object", domain.ErrInvalidInput, path)
	}
}

// loadJSONL reads one record per line, skipping blank lines. A single
// malformed line fails the load; a partially read collection would give
// silently wrong answers.
func (s *Source) loadJSONL(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []domain.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record domain.Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", path, lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	return records, nil
}

// Stat returns the size in bytes of the collection file.
func (s *Source) Stat(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
