package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
)

func TestBasicVerification_CountsQuotesAndRefs(t *testing.T) {
	answer := "Some context.\n" +
		"> \"first quote\"\n" +
		"More text [2.15] and [chunk 3].\n" +
		"> \"second quote\"\n"

	v := basicVerification(answer, "summarize the discussion")

	assert.True(t, v.HasCitations)
	assert.Equal(t, 2, v.CitationsFound)
	assert.Equal(t, []string{"[2.15]", "[chunk 3]"}, v.ReferenceIDs)
	assert.Empty(t, v.Issues)
}

func TestBasicVerification_Issues(t *testing.T) {
	t.Run("exhaustive phrasing with few citations", func(t *testing.T) {
		v := basicVerification("plain answer", "list all complaints")

		require.Len(t, v.Issues, 1)
		assert.Contains(t, v.Issues[0], "exhaustive")
	})

	t.Run("who question without attribution", func(t *testing.T) {
		v := basicVerification("several complaints were raised", "who complained about latency")

		require.Len(t, v.Issues, 1)
		assert.Contains(t, v.Issues[0], "usernames")
	})

	t.Run("who question with attribution", func(t *testing.T) {
		v := basicVerification("@alice complained about latency", "who complained about latency")

		assert.Empty(t, v.Issues)
	})
}

func TestPostProcessAnswer(t *testing.T) {
	t.Run("collapses blank runs", func(t *testing.T) {
		got := postProcessAnswer("a\n\n\n\nb", nil)
		assert.Equal(t, "a\n\nb", got)
	})

	t.Run("no summary without citations", func(t *testing.T) {
		got := postProcessAnswer("answer", &domain.VerificationResult{})
		assert.Equal(t, "answer", got)
	})

	t.Run("appends summary with citations", func(t *testing.T) {
		v := &domain.VerificationResult{
			HasCitations:   true,
			CitationsFound: 2,
			UniqueAuthors:  1,
			Issues:         []string{"something advisory"},
			ReferenceIDs:   []string{"0.3", "1.5"},
		}

		got := postProcessAnswer("answer", v)

		assert.Contains(t, got, "## Verification Summary")
		assert.Contains(t, got, "| Citations found | 2 |")
		assert.Contains(t, got, "| Unique contributors | 1 |")
		assert.Contains(t, got, "- something advisory")
		assert.Contains(t, got, "**Reference IDs:** `0.3, 1.5`")
	})

	t.Run("truncates long reference lists", func(t *testing.T) {
		refs := make([]string, 14)
		for i := range refs {
			refs[i] = "0.1"
		}
		v := &domain.VerificationResult{HasCitations: true, CitationsFound: 14, ReferenceIDs: refs}

		got := postProcessAnswer("answer", v)

		assert.Contains(t, got, "and 4 more")
	})
}
