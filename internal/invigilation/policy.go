package invigilation

import (
	"fmt"
	"math"
)

// SpecialtyMode decides how a supervisor whose specialty matches the subject
// is treated.
type SpecialtyMode string

const (
	// SpecialtyDeprioritize keeps same-specialty supervisors but ranks them last.
	SpecialtyDeprioritize SpecialtyMode = "deprioritize"
	// SpecialtyExclude removes same-specialty supervisors from the candidate set.
	SpecialtyExclude SpecialtyMode = "exclude"
)

// SecondaryRule decides where slots after the first are drawn from.
type SecondaryRule string

const (
	// SecondaryTeacherPool fills every slot from the teacher pool.
	SecondaryTeacherPool SecondaryRule = "teacher"
	// SecondaryByGradeTier fills later slots from the section pool for grades
	// configured at tier 2 or above.
	SecondaryByGradeTier SecondaryRule = "grade_tier"
)

// Tier classifies a grade for the SecondaryByGradeTier rule.
type Tier int

const (
	TierLower Tier = 1
	TierUpper Tier = 2
)

// Policy carries every tunable of a run.
type Policy struct {
	SpecialtyMode SpecialtyMode
	SecondaryRule SecondaryRule
	// DefaultDailyCapacity applies to supervisors without their own capacity.
	// Zero means unbounded.
	DefaultDailyCapacity int
	// SectionDailyCapacity caps section pool members per day. Zero means unbounded.
	SectionDailyCapacity int
	// DefaultNeeded is used for sessions that do not state a requirement.
	DefaultNeeded int
	// GradeTiers maps a grade label to its tier; lookups go through Normalizer.
	GradeTiers  map[string]Tier
	DefaultTier Tier
	Normalizer  *Normalizer
}

// DefaultPolicy mirrors the single-pool, one-supervisor classic run.
func DefaultPolicy() Policy {
	return Policy{
		SpecialtyMode: SpecialtyDeprioritize,
		SecondaryRule: SecondaryTeacherPool,
		DefaultNeeded: 1,
		DefaultTier:   TierLower,
		Normalizer:    NewNormalizer(nil),
	}
}

// Validate rejects unknown modes and negative limits.
func (p Policy) Validate() error {
	switch p.SpecialtyMode {
	case SpecialtyDeprioritize, SpecialtyExclude, "":
	default:
		return fmt.Errorf("%w: unknown specialty mode %q", ErrInvalidPolicy, p.SpecialtyMode)
	}
	switch p.SecondaryRule {
	case SecondaryTeacherPool, SecondaryByGradeTier, "":
	default:
		return fmt.Errorf("%w: unknown secondary rule %q", ErrInvalidPolicy, p.SecondaryRule)
	}
	if p.DefaultDailyCapacity < 0 || p.SectionDailyCapacity < 0 {
		return fmt.Errorf("%w: daily capacity must not be negative", ErrInvalidPolicy)
	}
	if p.DefaultNeeded < 0 {
		return fmt.Errorf("%w: default supervisors needed must not be negative", ErrInvalidPolicy)
	}
	return nil
}

func (p Policy) withDefaults() Policy {
	if p.SpecialtyMode == "" {
		p.SpecialtyMode = SpecialtyDeprioritize
	}
	if p.SecondaryRule == "" {
		p.SecondaryRule = SecondaryTeacherPool
	}
	if p.DefaultNeeded < 1 {
		p.DefaultNeeded = 1
	}
	if p.DefaultTier < TierLower {
		p.DefaultTier = TierLower
	}
	if p.Normalizer == nil {
		p.Normalizer = NewNormalizer(nil)
	}
	tiers := make(map[string]Tier, len(p.GradeTiers))
	for grade, tier := range p.GradeTiers {
		tiers[p.Normalizer.Normalize(grade)] = tier
	}
	p.GradeTiers = tiers
	return p
}

// TierFor classifies a grade. Unknown grades fall back to DefaultTier.
func (p Policy) TierFor(grade string) Tier {
	if tier, ok := p.GradeTiers[p.Normalizer.Normalize(grade)]; ok {
		return tier
	}
	return p.DefaultTier
}

func (p Policy) capacityFor(s Supervisor) int {
	switch {
	case s.DailyCapacity > 0:
		return s.DailyCapacity
	case s.Pool == PoolSection && p.SectionDailyCapacity > 0:
		return p.SectionDailyCapacity
	case s.Pool != PoolSection && p.DefaultDailyCapacity > 0:
		return p.DefaultDailyCapacity
	default:
		return math.MaxInt
	}
}

// split returns how many of needed slots come from the teacher pool and how
// many from the section pool.
func (p Policy) split(session Session, needed int) (teacherSlots, sectionSlots int) {
	if p.SecondaryRule == SecondaryByGradeTier && needed > 1 && p.TierFor(session.Grade) >= TierUpper {
		return 1, needed - 1
	}
	return needed, 0
}
