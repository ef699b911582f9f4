package analysis

import (
	"sort"
	"sync"

	"usage-watch/src/metrics"
	"usage-watch/src/models"
)

// -----------------------------------------------------------------------------
// ProfileTable holds the baselines of every tracked (customer, utility) pair.
// Values handed in or out are copies, so callers never share window slices.
// -----------------------------------------------------------------------------

type ProfileTable struct {
	profiles map[models.MPairKey]*models.MUsageProfile
	mu       sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewProfileTable() *ProfileTable {
	return &ProfileTable{
		profiles: make(map[models.MPairKey]*models.MUsageProfile),
	}
}

// -----------------------------------------------------------------------------

// Get returns a copy of the profile for key.
func (t *ProfileTable) Get(key models.MPairKey) (models.MUsageProfile, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.profiles[key]
	if !ok {
		return models.MUsageProfile{}, false
	}
	return p.Clone(), true
}

// -----------------------------------------------------------------------------

// Put stores a copy of profile under its own key.
func (t *ProfileTable) Put(profile models.MUsageProfile) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := profile.Clone()
	t.profiles[p.Key()] = &p
	metrics.ProfilesTracked.Set(float64(len(t.profiles)))
}

// -----------------------------------------------------------------------------

// Load merges snapshot entries over existing ones.
func (t *ProfileTable) Load(snapshot []models.MUsageProfile) {
	for _, p := range snapshot {
		t.Put(p)
	}
}

// -----------------------------------------------------------------------------

// Snapshot exports every profile ordered by pair.
func (t *ProfileTable) Snapshot() []models.MUsageProfile {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.MUsageProfile, 0, len(t.profiles))
	for _, p := range t.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().Less(out[j].Key())
	})
	return out
}

// -----------------------------------------------------------------------------

// ForCustomer returns the customer's profiles ordered by utility.
func (t *ProfileTable) ForCustomer(customerID string) []models.MUsageProfile {
	var out []models.MUsageProfile
	for _, p := range t.Snapshot() {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func (t *ProfileTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.profiles)
}
