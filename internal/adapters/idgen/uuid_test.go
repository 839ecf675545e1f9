package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

func TestUUIDGeneratorIssuesValidDistinctIDs(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for range 100 {
		id := UUIDGenerator{}.NewSessionID()
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())
		assert.True(t, domain.SessionID(id).Valid())
		assert.False(t, seen[id])
		seen[id] = true
	}
}
