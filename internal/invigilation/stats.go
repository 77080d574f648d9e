package invigilation

import (
	"math"
	"sort"
)

// SupervisorShare is one supervisor's slice of the workload.
type SupervisorShare struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Statistics summarises a run.
type Statistics struct {
	Total                     int               `json:"total"`
	SupervisorCounts          map[string]int    `json:"supervisorCounts"`
	Shares                    []SupervisorShare `json:"shares"`
	MinLoad                   int               `json:"minLoad"`
	MaxLoad                   int               `json:"maxLoad"`
	AvgLoad                   float64           `json:"avgLoad"`
	DifferentSpecialtyCount   int               `json:"differentSpecialtyCount"`
	DifferentSpecialtyPercent float64           `json:"differentSpecialtyPercent"`
	PerDay                    map[string]int    `json:"perDay"`
	ShortageCount             int               `json:"shortageCount"`
}

// Summarize computes load statistics. Min, max and average range over
// supervisors that received at least one assignment. Shares are ordered by
// count descending, then name.
func Summarize(assignments []Assignment, shortages []Shortage) Statistics {
	stats := Statistics{
		SupervisorCounts: make(map[string]int),
		Shares:           make([]SupervisorShare, 0),
		PerDay:           make(map[string]int),
		ShortageCount:    len(shortages),
	}
	for _, a := range assignments {
		stats.Total++
		stats.SupervisorCounts[a.Supervisor]++
		stats.PerDay[DateKey(a.Session.Date)]++
		if a.DifferentSpecialty {
			stats.DifferentSpecialtyCount++
		}
	}
	if stats.Total == 0 {
		return stats
	}

	stats.MinLoad = math.MaxInt
	for name, count := range stats.SupervisorCounts {
		if count < stats.MinLoad {
			stats.MinLoad = count
		}
		if count > stats.MaxLoad {
			stats.MaxLoad = count
		}
		stats.Shares = append(stats.Shares, SupervisorShare{
			Name:    name,
			Count:   count,
			Percent: round2(float64(count) * 100 / float64(stats.Total)),
		})
	}
	sort.Slice(stats.Shares, func(i, j int) bool {
		if stats.Shares[i].Count != stats.Shares[j].Count {
			return stats.Shares[i].Count > stats.Shares[j].Count
		}
		return stats.Shares[i].Name < stats.Shares[j].Name
	})
	stats.AvgLoad = round2(float64(stats.Total) / float64(len(stats.SupervisorCounts)))
	stats.DifferentSpecialtyPercent = round2(float64(stats.DifferentSpecialtyCount) * 100 / float64(stats.Total))
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
