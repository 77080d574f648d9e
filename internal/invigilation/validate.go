package invigilation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSupervisors is returned when the teacher pool is empty.
	ErrNoSupervisors = errors.New("no supervisors available")
	// ErrDuplicateSupervisor is returned when a name repeats, inside one pool
	// or across the teacher and section pools.
	ErrDuplicateSupervisor = errors.New("duplicate supervisor name")
	// ErrInvalidPolicy wraps policy validation failures.
	ErrInvalidPolicy = errors.New("invalid assignment policy")
)

// ValidateSupervisors checks the pool preconditions of a run and splits the
// supervisors by pool, preserving input order.
func ValidateSupervisors(supervisors []Supervisor) (teachers, sections []Supervisor, err error) {
	seen := make(map[string]Pool, len(supervisors))
	for _, s := range supervisors {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		s.Name = name
		if s.Pool == "" {
			s.Pool = PoolTeacher
		}
		if pool, dup := seen[name]; dup {
			if pool != s.Pool {
				return nil, nil, fmt.Errorf("%w: %s is listed in both the %s and %s pools", ErrDuplicateSupervisor, name, pool, s.Pool)
			}
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateSupervisor, name)
		}
		seen[name] = s.Pool
		if s.Pool == PoolSection {
			sections = append(sections, s)
		} else {
			teachers = append(teachers, s)
		}
	}
	if len(teachers) == 0 {
		return nil, nil, ErrNoSupervisors
	}
	return teachers, sections, nil
}
