// Package personality holds the fixed set of parent communication styles
// used to steer email drafts.
package personality

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknown is returned by Lookup for names outside the fixed set.
var ErrUnknown = errors.New("unknown personality type")

// Profile is a single communication style.
type Profile struct {
	Name        string `yaml:"name" json:"name"`
	Label       string `yaml:"label" json:"label"`
	Instruction string `yaml:"instruction" json:"instruction"`
}

//go:embed profiles.yaml
var profilesYAML []byte

var (
	ordered []Profile
	byName  map[string]Profile
)

func init() {
	profiles, err := parse(profilesYAML)
	if err != nil {
		panic(fmt.Sprintf("personality: %v", err))
	}
	ordered = profiles
	byName = make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p
	}
}

func parse(data []byte) ([]Profile, error) {
	var doc struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	if len(doc.Profiles) == 0 {
		return nil, errors.New("no profiles defined")
	}
	seen := make(map[string]bool, len(doc.Profiles))
	for i, p := range doc.Profiles {
		if p.Name == "" || p.Instruction == "" {
			return nil, fmt.Errorf("profile %d: name and instruction are required", i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		seen[p.Name] = true
	}
	return doc.Profiles, nil
}

// Normalize maps user input onto the canonical profile key form.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup returns the profile for name. Matching ignores case and
// surrounding whitespace.
func Lookup(name string) (Profile, error) {
	p, ok := byName[Normalize(name)]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return p, nil
}

// All returns every profile in presentation order. The returned slice is a copy.
func All() []Profile {
	out := make([]Profile, len(ordered))
	copy(out, ordered)
	return out
}

// Names returns the profile keys in presentation order.
func Names() []string {
	names := make([]string, len(ordered))
	for i, p := range ordered {
		names[i] = p.Name
	}
	return names
}
