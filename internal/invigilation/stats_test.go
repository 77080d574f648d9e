package invigilation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	first := Session{Date: day(t, "2025-01-15")}
	second := Session{Date: day(t, "2025-01-16")}
	assignments := []Assignment{
		{Session: first, Supervisor: "A", DifferentSpecialty: true},
		{Session: second, Supervisor: "A"},
		{Session: first, Supervisor: "B", SlotIndex: 1, DifferentSpecialty: true},
	}

	stats := Summarize(assignments, []Shortage{{Session: second, Required: 2, Filled: 1}})
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, stats.SupervisorCounts)
	assert.Equal(t, 2, stats.MaxLoad)
	assert.Equal(t, 1, stats.MinLoad)
	assert.Equal(t, 1.5, stats.AvgLoad)
	assert.Equal(t, 2, stats.DifferentSpecialtyCount)
	assert.Equal(t, 66.67, stats.DifferentSpecialtyPercent)
	assert.Equal(t, map[string]int{"2025-01-15": 2, "2025-01-16": 1}, stats.PerDay)
	assert.Equal(t, 1, stats.ShortageCount)
	assert.Equal(t, []SupervisorShare{
		{Name: "A", Count: 2, Percent: 66.67},
		{Name: "B", Count: 1, Percent: 33.33},
	}, stats.Shares)
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil, nil)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.MinLoad)
	assert.Zero(t, stats.AvgLoad)
	assert.NotNil(t, stats.SupervisorCounts)
	assert.Empty(t, stats.Shares)
}
