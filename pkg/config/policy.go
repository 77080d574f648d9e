package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"

	"github.com/noah-isme/sma-invigilation-api/pkg/tabular"
)

// PolicyFile carries the lookup tables that are too large for environment
// variables. Every table is optional.
type PolicyFile struct {
	// SpecialtyAliases maps a specialty or subject spelling to its canonical label.
	SpecialtyAliases map[string]string `mapstructure:"specialty_aliases"`
	// GradeTiers classifies grades for the grade tier secondary rule.
	GradeTiers map[string]int `mapstructure:"grade_tiers"`
	// Sections lists the sections of each grade.
	Sections map[string][]string `mapstructure:"sections"`
	// HeaderAliases adds spellings for canonical import columns.
	HeaderAliases map[string][]string `mapstructure:"header_aliases"`
	// Timetable overrides the wide timetable layout.
	Timetable *tabular.PeriodLayout `mapstructure:"timetable"`
}

// LoadPolicyFile reads a YAML (or JSON/TOML by extension) policy file. An
// empty path yields an empty policy.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	policy := &PolicyFile{}
	if path == "" {
		return policy, nil
	}

	// subject names may contain dots, so keep them out of key paths
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read policy file %s: %w", path, err)
	}
	if err := v.Unmarshal(policy); err != nil {
		return nil, fmt.Errorf("decode policy file %s: %w", path, err)
	}
	return policy, nil
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
