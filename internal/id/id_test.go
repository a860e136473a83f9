package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		id, err := Generate(PrefixRequest)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	prefixes := []string{
		PrefixUser, PrefixBook, PrefixRequest, PrefixReading, PrefixThread,
		PrefixMessage, PrefixLedger, PrefixIdea, PrefixReview, PrefixDonation,
		PrefixNotification, PrefixAudit,
	}

	for _, prefix := range prefixes {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			assert.True(t, HasPrefix(id, prefix))
			// NanoID default is 21 characters
			assert.Equal(t, len(prefix)+1+21, len(id), "ID: %s", id)

			nanoidPart := strings.TrimPrefix(id, prefix+"-")
			for _, char := range nanoidPart {
				assert.True(t,
					(char >= 'A' && char <= 'Z') ||
						(char >= 'a' && char <= 'z') ||
						(char >= '0' && char <= '9') ||
						char == '_' || char == '-',
					"Character %c should be URL-safe", char)
			}
		})
	}
}

func TestMustGenerate_Format(t *testing.T) {
	id := MustGenerate(PrefixThread)

	assert.True(t, strings.HasPrefix(id, "thr-"))
	assert.Equal(t, len("thr")+1+21, len(id))
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix("book-abc", PrefixBook))
	assert.False(t, HasPrefix("bookmark-abc", PrefixBook))
}

func BenchmarkGenerate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Generate("bench")
	}
}
