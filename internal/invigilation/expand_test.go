package invigilation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandSections(t *testing.T) {
	table := SectionTable{
		"Grade 3": {"3A", "3B"},
		"Grade 1": {},
	}
	sessions := []Session{
		{ID: 1, Grade: "grade 3", Subject: "Math"},
		{ID: 2, Grade: "Grade 1", Subject: "Math"},
		{ID: 3, Grade: "Grade 3", Section: "3C", Subject: "Art"},
		{ID: 4, Grade: "Grade 9", Subject: "Art"},
	}

	out := ExpandSections(sessions, table, NewNormalizer(nil))
	require.Len(t, out, 5)
	assert.Equal(t, 1, out[0].ID)
	assert.Equal(t, "3A", out[0].Section)
	assert.Equal(t, 2, out[1].ID)
	assert.Equal(t, "3B", out[1].Section)
	assert.Equal(t, Session{ID: 3, Grade: "Grade 1", Subject: "Math"}, out[2])
	assert.Equal(t, "3C", out[3].Section)
	assert.Equal(t, 4, out[3].ID)
	assert.Equal(t, 5, out[4].ID)
	assert.Empty(t, out[4].Section)

	seen := make(map[int]bool, len(out))
	for _, session := range out {
		assert.False(t, seen[session.ID], "duplicate session id %d", session.ID)
		seen[session.ID] = true
	}
}

func TestExpandSectionsWithoutTableIsIdentity(t *testing.T) {
	sessions := []Session{{ID: 1, Grade: "Grade 3"}}
	assert.Equal(t, sessions, ExpandSections(sessions, nil, nil))
}
