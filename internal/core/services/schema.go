package services

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/logger"
)

// SchemaService infers the structure of a record collection from a
// sample of its records.
type SchemaService struct {
	sampleSize int
}

// NewSchemaService creates a schema service sampling up to sampleSize
// records per collection.
func NewSchemaService(sampleSize int) *SchemaService {
	if sampleSize <= 0 {
		sampleSize = 100
	}
	return &SchemaService{sampleSize: sampleSize}
}

// Analyze inspects the records and returns the inferred schema.
// Inference is heuristic: it samples evenly across the collection so
// fields that only appear late are still discovered.
func (s *SchemaService) Analyze(records []domain.Record, sourceBytes int64) (*domain.Schema, error) {
	logger.Section("Schema Inference")
	logger.Debug("Records: %d, sample size: %d", len(records), s.sampleSize)

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: collection has no records", domain.ErrInvalidSchema)
	}

	sample := sampleRecords(records, s.sampleSize)
	logger.Debug("Sampled %d records", len(sample))

	fields := inferFields(sample)

	fieldMap := make(map[string]domain.FieldInfo, len(fields))
	for _, f := range fields {
		fieldMap[f.Name] = f
	}

	schema := &domain.Schema{
		RootType:     "array",
		TotalRecords: len(records),
		Fields:       fieldMap,
		SampleSize:   len(sample),
		SourceBytes:  sourceBytes,
	}

	schema.Format = detectFormat(fields)
	logger.Info("Detected format: %s", schema.Format)

	// Pick the special-purpose fields once so every downstream stage
	// agrees on them.
	for _, f := range fields {
		switch {
		case schema.TimestampField == "" && f.IsTimestamp():
			schema.TimestampField = f.Name
		case schema.ContentField == "" && f.IsContent():
			schema.ContentField = f.Name
		case schema.IDField == "" && f.IsIdentifier():
			schema.IDField = f.Name
		}
	}
	logger.Debug("Timestamp field: %q, content field: %q, id field: %q",
		schema.TimestampField, schema.ContentField, schema.IDField)

	if schema.Format.IsMessageLog() {
		schema.Channels = collectChannels(records)
		logger.Debug("Channels: %d", len(schema.Channels))
	}

	return schema, nil
}

// sampleRecords picks up to n records spread evenly across the
// collection.
func sampleRecords(records []domain.Record, n int) []domain.Record {
	if len(records) <= n {
		return records
	}
	sample := make([]domain.Record, 0, n)
	step := float64(len(records)) / float64(n)
	for i := 0; i < n; i++ {
		sample = append(sample, records[int(float64(i)*step)])
	}
	return sample
}

// inferFields builds per-field metadata from the sample.
func inferFields(sample []domain.Record) []domain.FieldInfo {
	const maxSampleValues = 5

	type acc struct {
		types       map[domain.FieldType]int
		occurrences int
		nulls       int
		samples     []string
		seen        map[string]bool
	}

	accs := make(map[string]*acc)
	order := make([]string, 0)

	for _, r := range sample {
		for name, value := range r {
			a, ok := accs[name]
			if !ok {
				a = &acc{types: make(map[domain.FieldType]int), seen: make(map[string]bool)}
				accs[name] = a
				order = append(order, name)
			}
			a.occurrences++
			if value == nil {
				a.nulls++
				continue
			}
			ft := fieldTypeOf(value)
			a.types[ft]++
			if ft == domain.FieldString && len(a.samples) < maxSampleValues {
				str, _ := value.(string)
				if str != "" && len(str) <= 80 && !a.seen[str] {
					a.samples = append(a.samples, str)
					a.seen[str] = true
				}
			}
		}
	}

	sort.Strings(order)

	fields := make([]domain.FieldInfo, 0, len(accs))
	for _, name := range order {
		a := accs[name]
		fields = append(fields, domain.FieldInfo{
			Name:            name,
			Type:            dominantType(a.types),
			Nullable:        a.nulls > 0 || a.occurrences < len(sample),
			SampleValues:    a.samples,
			OccurrenceCount: a.occurrences,
		})
	}

	return fields
}

// fieldTypeOf maps a decoded JSON value to a field type.
func fieldTypeOf(value any) domain.FieldType {
	switch value.(type) {
	case string:
		return domain.FieldString
	case float64, int, int64, json.Number:
		return domain.FieldNumber
	case bool:
		return domain.FieldBoolean
	case []any:
		return domain.FieldArray
	case map[string]any:
		return domain.FieldObject
	default:
		return domain.FieldMixed
	}
}

// dominantType resolves the observed types for a field: null when only
// nulls were seen, mixed when samples disagreed, otherwise the single
// observed type.
func dominantType(types map[domain.FieldType]int) domain.FieldType {
	switch len(types) {
	case 0:
		return domain.FieldNull
	case 1:
		for t := range types {
			return t
		}
	}
	return domain.FieldMixed
}

// detectFormat classifies the collection by its field names.
func detectFormat(fields []domain.FieldInfo) domain.RecordFormat {
	names := make(map[string]bool, len(fields))
	for _, f := range fields {
		names[f.Name] = true
	}

	switch {
	case names["author"] && names["content"] && names["timestamp"]:
		return domain.FormatDiscord
	case names["user"] && names["text"] && names["ts"]:
		return domain.FormatSlack
	case names["full_text"] || (names["text"] && names["retweet_count"]):
		return domain.FormatTwitter
	default:
		return domain.FormatGenericArray
	}
}

// collectChannels gathers distinct channel names across the whole
// collection, not just the sample.
func collectChannels(records []domain.Record) []string {
	seen := make(map[string]bool)
	for _, r := range records {
		for _, key := range []string{"channel", "channel_name"} {
			if name := r.StringField(key); name != "" {
				seen[name] = true
			}
		}
	}
	channels := make([]string, 0, len(seen))
	for name := range seen {
		channels = append(channels, name)
	}
	sort.Strings(channels)
	return channels
}
