package service

import (
	"time"

	"github.com/noah-isme/sma-invigilation-api/internal/invigilation"
	"github.com/noah-isme/sma-invigilation-api/pkg/config"
	"github.com/noah-isme/sma-invigilation-api/pkg/tabular"
)

// InvigilationServiceConfig governs assignment runs.
type InvigilationServiceConfig struct {
	Policy           invigilation.Policy
	SpecialtyAliases map[string]string
	Sections         invigilation.SectionTable
	HeaderAliases    map[string][]string
	Layout           *tabular.PeriodLayout
	ProposalTTL      time.Duration
	CacheTTL         time.Duration
}

// InvigilationSettings combines environment settings with the optional
// policy file. Tiers from the file win over INVIGILATION_TIER2_GRADES.
func InvigilationSettings(cfg config.InvigilationConfig, file *config.PolicyFile) InvigilationServiceConfig {
	if file == nil {
		file = &config.PolicyFile{}
	}
	tiers := make(map[string]invigilation.Tier, len(cfg.Tier2Grades)+len(file.GradeTiers))
	for _, grade := range cfg.Tier2Grades {
		tiers[grade] = invigilation.TierUpper
	}
	for grade, tier := range file.GradeTiers {
		tiers[grade] = invigilation.Tier(tier)
	}

	sections := make(invigilation.SectionTable, len(file.Sections))
	for grade, list := range file.Sections {
		sections[grade] = append([]string(nil), list...)
	}

	return InvigilationServiceConfig{
		Policy: invigilation.Policy{
			SpecialtyMode:        invigilation.SpecialtyMode(cfg.SpecialtyMode),
			SecondaryRule:        invigilation.SecondaryRule(cfg.SecondaryRule),
			DefaultDailyCapacity: cfg.DefaultDailyCapacity,
			SectionDailyCapacity: cfg.SectionDailyCapacity,
			DefaultNeeded:        cfg.DefaultNeeded,
			GradeTiers:           tiers,
			DefaultTier:          invigilation.Tier(cfg.DefaultTier),
		},
		SpecialtyAliases: file.SpecialtyAliases,
		Sections:         sections,
		HeaderAliases:    file.HeaderAliases,
		Layout:           file.Timetable,
		ProposalTTL:      cfg.ProposalTTL,
		CacheTTL:         cfg.CacheTTL,
	}
}
