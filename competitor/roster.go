package competitor

import (
	"fmt"
	"sort"
	"sync"
)

// Roster is the authoritative collection of competitors. Membership changes
// hold the roster lock; statistical updates go through the entity locks so a
// long match resolution never blocks lookups.
type Roster struct {
	mu     sync.RWMutex
	byID   map[string]*Competitor
	byName map[string]string
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{
		byID:   map[string]*Competitor{},
		byName: map[string]string{},
	}
}

// Add registers a competitor. Names must be unique.
func (r *Roster) Add(c *Competitor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[c.Name]; ok {
		return fmt.Errorf("competitor %q already registered", c.Name)
	}
	r.byID[c.ID] = c
	r.byName[c.Name] = c.ID
	return nil
}

// Get returns a competitor by id.
func (r *Roster) Get(id string) (*Competitor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

// GetByName returns a competitor by display name.
func (r *Roster) GetByName(name string) (*Competitor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

// All returns every registered competitor, active or not.
func (r *Roster) All() []*Competitor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Competitor, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}

// Active returns all active competitors.
func (r *Roster) Active() []*Competitor {
	return r.filter(func(c *Competitor) bool { return c.Active() })
}

// ActiveIn returns active competitors in the given division.
func (r *Roster) ActiveIn(d Division) []*Competitor {
	return r.filter(func(c *Competitor) bool {
		return c.Active() && c.Division() == d
	})
}

// Champion returns the current champion, or nil if the throne is vacant.
func (r *Roster) Champion() *Competitor {
	for _, c := range r.ActiveIn(DivisionChampion) {
		return c
	}
	return nil
}

// TopOf returns active competitors in a division sorted by rating,
// highest first. Ties break on name for determinism.
func (r *Roster) TopOf(d Division) []*Competitor {
	out := r.ActiveIn(d)
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Rating(), out[j].Rating()
		if ri != rj {
			return ri > rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Judges returns active competitors tagged as judges in division min or
// above, excluding the given participant ids so nobody judges their own
// match.
func (r *Roster) Judges(min Division, exclude ...string) []*Competitor {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	out := r.filter(func(c *Competitor) bool {
		if !c.Active() || !c.CanJudge || c.Division() < min {
			return false
		}
		_, excluded := skip[c.ID]
		return !excluded
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Rating() > out[j].Rating() })
	return out
}

func (r *Roster) filter(keep func(*Competitor) bool) []*Competitor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Competitor
	for _, c := range r.byID {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
