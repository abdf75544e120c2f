package prompts

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrPromptNotFound is returned for an unknown id or version.
var ErrPromptNotFound = errors.New("prompt not found")

// PromptRegistry holds every version of the turn prompts. Versions of one id
// are kept in ascending semantic-version order.
type PromptRegistry struct {
	mu      sync.RWMutex
	prompts map[string][]*Prompt
}

var (
	defaultRegistry     *PromptRegistry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry the built-in prompts
// register into.
func DefaultRegistry() *PromptRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewPromptRegistry()
	})
	return defaultRegistry
}

func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{prompts: make(map[string][]*Prompt)}
}

// Register adds a prompt version. Registering an id/version pair twice is
// an error.
func (r *PromptRegistry) Register(p *Prompt) error {
	if p == nil || p.ID == "" || p.Version == "" {
		return errors.New("prompt id and version are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.prompts[p.ID]
	for _, existing := range versions {
		if existing.Version == p.Version {
			return fmt.Errorf("prompt %s version %s already registered", p.ID, p.Version)
		}
	}
	versions = append(versions, p)
	sort.Slice(versions, func(i, j int) bool {
		return compareVersions(versions[i].Version, versions[j].Version) < 0
	})
	r.prompts[p.ID] = versions
	return nil
}

// MustRegister is Register for built-in prompts; it panics on error.
func (r *PromptRegistry) MustRegister(p *Prompt) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Get returns one exact version of a prompt.
func (r *PromptRegistry) Get(id string, version PromptVersion) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.prompts[id] {
		if p.Version == version {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s@%s", ErrPromptNotFound, id, version)
}

// GetLatest returns the highest non-deprecated version, or the highest
// version when every version is deprecated.
func (r *PromptRegistry) GetLatest(id string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.prompts[id]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if !versions[i].Deprecated {
			return versions[i], nil
		}
	}
	return versions[len(versions)-1], nil
}

// IDs returns the registered prompt ids, sorted.
func (r *PromptRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Versions returns the versions of id in ascending order.
func (r *PromptRegistry) Versions(id string) []PromptVersion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PromptVersion, 0, len(r.prompts[id]))
	for _, p := range r.prompts[id] {
		out = append(out, p.Version)
	}
	return out
}

// compareVersions orders dotted numeric versions ("1.10.0" > "1.9.0").
// Non-numeric parts compare as strings.
func compareVersions(a, b PromptVersion) int {
	as, bs := strings.Split(string(a), "."), strings.Split(string(b), ".")
	for i := 0; i < max(len(as), len(bs)); i++ {
		var x, y string
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		xn, xerr := strconv.Atoi(x)
		yn, yerr := strconv.Atoi(y)
		switch {
		case xerr == nil && yerr == nil:
			if xn != yn {
				if xn < yn {
					return -1
				}
				return 1
			}
		case x != y:
			return strings.Compare(x, y)
		}
	}
	return 0
}
