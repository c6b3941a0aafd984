package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RecordFormat identifies a known record collection shape.
// Known formats get specialised chunk text formatting and filter handling.
type RecordFormat string

// Known record formats.
const (
	FormatDiscord       RecordFormat = "discord"
	FormatSlack         RecordFormat = "slack"
	FormatTwitter       RecordFormat = "twitter"
	FormatGenericArray  RecordFormat = "generic_array"
	FormatGenericObject RecordFormat = "generic_object"
	FormatJSONL         RecordFormat = "jsonl"
	FormatUnknown       RecordFormat = "unknown"
)

// IsMessageLog reports whether the format is a chat/message export
// with author, content and timestamp semantics.
func (f RecordFormat) IsMessageLog() bool {
	return f == FormatDiscord || f == FormatSlack || f == FormatTwitter
}

// FieldType is the inferred type of a field across sampled records.
type FieldType string

// Inferred field types. Mixed means samples disagreed on the type.
const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldArray   FieldType = "array"
	FieldObject  FieldType = "object"
	FieldNull    FieldType = "null"
	FieldMixed   FieldType = "mixed"
)

// timestampLayouts are the layouts tried when deciding whether string
// values look like timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FieldInfo describes one field observed in the sampled records.
type FieldInfo struct {
	// Name is the field name as it appears in records.
	Name string

	// Type is the inferred field type.
	Type FieldType

	// Nullable is true if any sampled value was null.
	Nullable bool

	// SampleValues holds up to a few short representative values.
	SampleValues []string

	// OccurrenceCount is how many sampled records carried the field.
	OccurrenceCount int
}

// timestampNameTokens are name fragments that suggest a temporal field.
var timestampNameTokens = []string{"time", "date", "created", "updated", "timestamp"}

// contentNameTokens are name fragments that suggest free-text content.
var contentNameTokens = []string{"content", "text", "message", "body", "description"}

// identifierNames are field names treated as identifiers.
var identifierNames = map[string]bool{
	"id": true, "_id": true, "uid": true, "uuid": true, "key": true,
}

// IsTimestamp reports whether the field looks like a timestamp, either
// by name or because its sampled string values parse as ISO-like dates.
func (f FieldInfo) IsTimestamp() bool {
	lower := strings.ToLower(f.Name)
	for _, tok := range timestampNameTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	// "created_at" style suffixes, without matching every name that
	// merely contains "at".
	if strings.HasSuffix(lower, "_at") || lower == "ts" {
		return true
	}

	if f.Type != FieldString {
		return false
	}
	for _, v := range f.SampleValues {
		if looksLikeTimestamp(v) {
			return true
		}
	}
	return false
}

// IsContent reports whether the field looks like it holds the main text.
func (f FieldInfo) IsContent() bool {
	lower := strings.ToLower(f.Name)
	for _, tok := range contentNameTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// IsIdentifier reports whether the field looks like an ID.
func (f FieldInfo) IsIdentifier() bool {
	return identifierNames[strings.ToLower(f.Name)]
}

// looksLikeTimestamp reports whether a string value parses with any of
// the recognised timestamp layouts.
func looksLikeTimestamp(v string) bool {
	_, ok := ParseTimestamp(v)
	return ok
}

// ParseTimestamp parses a record timestamp value, trying the recognised
// layouts in order.
func ParseTimestamp(v string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TotalUnknown is the TotalRecords value for streamed sources where the
// record count cannot be determined up front.
const TotalUnknown = -1

// Schema is the inferred shape of a loaded collection.
// It is immutable after analysis; re-analysis requires a fresh call.
type Schema struct {
	// Format is the detected known format, or a generic fallback.
	Format RecordFormat

	// RootType is "array" or "object".
	RootType string

	// TotalRecords is the record count, or TotalUnknown for streams.
	TotalRecords int

	// Fields maps field name to its inferred description.
	Fields map[string]FieldInfo

	// SampleSize is how many records were sampled for inference.
	SampleSize int

	// SourceBytes is the size of the source file, when file-backed.
	SourceBytes int64

	// TimestampField is the first field designated as a timestamp, if any.
	TimestampField string

	// ContentField is the first field designated as main content, if any.
	ContentField string

	// IDField is the first field designated as an identifier, if any.
	IDField string

	// Channels holds channel names extracted from message-log formats.
	Channels []string
}

// SearchableFields returns fields likely to contain searchable text.
func (s *Schema) SearchableFields() []string {
	var names []string
	for name, info := range s.Fields {
		if info.Type == FieldString && !info.IsIdentifier() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// GroupableFields returns fields usable for grouped chunking.
func (s *Schema) GroupableFields() []string {
	var names []string
	for name, info := range s.Fields {
		if info.IsTimestamp() || info.Type == FieldString || info.Type == FieldNumber {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Summary renders a human-readable schema overview for the CLI.
func (s *Schema) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Format: %s\n", s.Format)
	fmt.Fprintf(&b, "Root type: %s\n", s.RootType)
	if s.TotalRecords == TotalUnknown {
		b.WriteString("Total records: unknown\n")
	} else {
		fmt.Fprintf(&b, "Total records: %d\n", s.TotalRecords)
	}
	if s.SourceBytes > 0 {
		fmt.Fprintf(&b, "Source size: %.2f MB\n", float64(s.SourceBytes)/1024/1024)
	}
	fmt.Fprintf(&b, "Fields analyzed: %d\n", len(s.Fields))

	if s.TimestampField != "" {
		fmt.Fprintf(&b, "Timestamp field: %s\n", s.TimestampField)
	}
	if s.ContentField != "" {
		fmt.Fprintf(&b, "Content field: %s\n", s.ContentField)
	}
	if s.IDField != "" {
		fmt.Fprintf(&b, "ID field: %s\n", s.IDField)
	}

	b.WriteString("\nKey fields:\n")
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		info := s.Fields[name]
		var markers []string
		if info.IsTimestamp() {
			markers = append(markers, "timestamp")
		}
		if info.IsContent() {
			markers = append(markers, "content")
		}
		if info.IsIdentifier() {
			markers = append(markers, "id")
		}
		line := fmt.Sprintf("  - %s: %s", name, info.Type)
		if len(markers) > 0 {
			line += " [" + strings.Join(markers, ", ") + "]"
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}
