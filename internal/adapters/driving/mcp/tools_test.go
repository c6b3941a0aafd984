package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driving"
)

// fakeQueryService records calls and returns canned responses.
type fakeQueryService struct {
	schema     *domain.Schema
	result     *domain.QueryResult
	loadErr    error
	queryErr   error
	schemaErr  error
	loadedPath string
	lastOpts   driving.QueryOptions
}

func (f *fakeQueryService) LoadCollection(_ context.Context, path string) (*domain.Schema, error) {
	f.loadedPath = path
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.schema, nil
}

func (f *fakeQueryService) Query(_ context.Context, _ string, opts driving.QueryOptions) (*domain.QueryResult, error) {
	f.lastOpts = opts
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.result, nil
}

func (f *fakeQueryService) Schema() (*domain.Schema, error) {
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	return f.schema, nil
}

func testSchema() *domain.Schema {
	return &domain.Schema{
		Format:         domain.FormatDiscord,
		TotalRecords:   120,
		TimestampField: "timestamp",
		ContentField:   "content",
		IDField:        "id",
		Channels:       []string{"feedback", "general"},
		Fields: map[string]domain.FieldInfo{
			"timestamp": {Name: "timestamp", Type: domain.FieldString},
			"content":   {Name: "content", Type: domain.FieldString},
			"id":        {Name: "id", Type: domain.FieldNumber},
			"author":    {Name: "author", Type: domain.FieldString, Nullable: true},
		},
	}
}

func TestPortsValidate(t *testing.T) {
	err := (&Ports{}).Validate()
	assert.ErrorIs(t, err, ErrMissingQueryService)

	err = (&Ports{Query: &fakeQueryService{}}).Validate()
	assert.NoError(t, err)
}

func TestNewServer_RequiresQueryService(t *testing.T) {
	_, err := NewServer(&Ports{})
	require.Error(t, err)

	srv, err := NewServer(&Ports{Query: &fakeQueryService{}})
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestHandleLoadCollection(t *testing.T) {
	fake := &fakeQueryService{schema: testSchema()}
	srv, err := NewServer(&Ports{Query: fake})
	require.NoError(t, err)

	_, out, err := srv.handleLoadCollection(context.Background(), nil,
		LoadCollectionInput{Path: "/data/export.json"})
	require.NoError(t, err)

	assert.Equal(t, "/data/export.json", fake.loadedPath)
	assert.Equal(t, "discord", out.Format)
	assert.Equal(t, 120, out.TotalRecords)
	assert.Equal(t, []string{"author", "content", "id", "timestamp"}, out.Fields)
	assert.Equal(t, []string{"feedback", "general"}, out.Channels)
}

func TestHandleLoadCollection_Error(t *testing.T) {
	fake := &fakeQueryService{loadErr: errors.New("no such file")}
	srv, err := NewServer(&Ports{Query: fake})
	require.NoError(t, err)

	_, _, err = srv.handleLoadCollection(context.Background(), nil,
		LoadCollectionInput{Path: "/missing.json"})
	assert.Error(t, err)
}

func TestHandleQuery(t *testing.T) {
	fake := &fakeQueryService{result: &domain.QueryResult{
		Answer:          "Total count: 6 (from 3 chunks)",
		Success:         true,
		ChunksProcessed: 3,
		ChunksFiltered:  1,
		TotalTokens:     45,
		Duration:        1500 * time.Millisecond,
		Verification: &domain.VerificationResult{
			HasCitations: true,
			ReferenceIDs: []string{"0.3", "1.5"},
		},
	}}
	srv, err := NewServer(&Ports{Query: fake})
	require.NoError(t, err)

	_, out, err := srv.handleQuery(context.Background(), nil, QueryInput{
		Query:    "how many complaints were there?",
		FullScan: true,
	})
	require.NoError(t, err)

	assert.True(t, fake.lastOpts.ForceFullScan)
	assert.False(t, fake.lastOpts.DisableCache)
	assert.Equal(t, "Total count: 6 (from 3 chunks)", out.Answer)
	assert.Equal(t, 3, out.ChunksProcessed)
	assert.Equal(t, 1, out.ChunksFiltered)
	assert.Equal(t, 45, out.TotalTokens)
	assert.Equal(t, int64(1500), out.DurationMs)
	assert.Equal(t, []string{"0.3", "1.5"}, out.CitationRefs)
}

func TestHandleQuery_NoVerification(t *testing.T) {
	fake := &fakeQueryService{result: &domain.QueryResult{Answer: "ok", Success: true}}
	srv, err := NewServer(&Ports{Query: fake})
	require.NoError(t, err)

	_, out, err := srv.handleQuery(context.Background(), nil, QueryInput{Query: "summarize"})
	require.NoError(t, err)
	assert.Empty(t, out.CitationRefs)
}

func TestHandleSchema(t *testing.T) {
	fake := &fakeQueryService{schema: testSchema()}
	srv, err := NewServer(&Ports{Query: fake})
	require.NoError(t, err)

	_, out, err := srv.handleSchema(context.Background(), nil, SchemaInput{})
	require.NoError(t, err)

	assert.Equal(t, "discord", out.Format)
	assert.Equal(t, "timestamp", out.TimestampField)
	assert.Equal(t, "content", out.ContentField)
	assert.Equal(t, "id", out.IDField)
	assert.Equal(t, []string{"author", "content", "id", "timestamp"}, out.Fields)
}

func TestHandleSchema_NotLoaded(t *testing.T) {
	fake := &fakeQueryService{schemaErr: domain.ErrNoCollection}
	srv, err := NewServer(&Ports{Query: fake})
	require.NoError(t, err)

	_, _, err = srv.handleSchema(context.Background(), nil, SchemaInput{})
	assert.ErrorIs(t, err, domain.ErrNoCollection)
}
