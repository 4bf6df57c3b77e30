package tier

import (
	"fmt"
	"sync"
)

// Resolver maps a caller identity and endpoint to the tier that governs it.
// Implementations must be safe for concurrent use.
type Resolver interface {
	// Resolve returns the tier for the caller. Returns an error wrapping
	// ErrUnknownTier when the caller has no assigned tier and no default
	// tier is configured.
	Resolve(callerID, endpoint string) (Tier, error)
}

// Static resolves tiers from an in-memory table of caller assignments with an
// optional default tier for unassigned callers.
type Static struct {
	mu          sync.RWMutex
	tiers       map[string]Tier
	assignments map[string]string
	defaultTier string
}

// NewStatic builds a resolver from validated tiers.
// assignments maps caller IDs to tier names; defaultTier (may be empty)
// applies to callers without an assignment.
func NewStatic(tiers []Tier, assignments map[string]string, defaultTier string) (*Static, error) {
	byName := make(map[string]Tier, len(tiers))
	for _, t := range tiers {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tier %q", ErrMisconfigured, t.Name)
		}
		byName[t.Name] = t
	}

	if defaultTier != "" {
		if _, ok := byName[defaultTier]; !ok {
			return nil, fmt.Errorf("%w: default tier %q not defined", ErrMisconfigured, defaultTier)
		}
	}
	for caller, name := range assignments {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("%w: caller %q assigned to undefined tier %q", ErrMisconfigured, caller, name)
		}
	}

	assigned := make(map[string]string, len(assignments))
	for k, v := range assignments {
		assigned[k] = v
	}

	return &Static{
		tiers:       byName,
		assignments: assigned,
		defaultTier: defaultTier,
	}, nil
}

// Resolve implements Resolver.
func (s *Static) Resolve(callerID, _ string) (Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.assignments[callerID]
	if !ok {
		if s.defaultTier == "" {
			return Tier{}, fmt.Errorf("%w: caller %q", ErrUnknownTier, callerID)
		}
		name = s.defaultTier
	}
	return s.tiers[name], nil
}

// Assign sets or replaces a caller's tier assignment.
func (s *Static) Assign(callerID, tierName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tiers[tierName]; !ok {
		return fmt.Errorf("%w: tier %q not defined", ErrUnknownTier, tierName)
	}
	s.assignments[callerID] = tierName
	return nil
}
