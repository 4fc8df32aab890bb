package roster

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"campaign_feed/internal/domain"
)

//go:embed personas.yaml
var defaultRoster []byte

type file struct {
	Personas []domain.Persona `yaml:"personas"`
}

// Default returns a fresh copy of the built-in electorate.
func Default() ([]domain.Persona, error) {
	return Parse(defaultRoster)
}

// Load reads a roster override from path, or the built-in one when path is empty.
func Load(path string) ([]domain.Persona, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]domain.Persona, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if len(f.Personas) == 0 {
		return nil, fmt.Errorf("roster has no personas")
	}

	seen := make(map[string]bool, len(f.Personas))
	out := make([]domain.Persona, 0, len(f.Personas))
	for i, p := range f.Personas {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("persona %d: id is required", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("persona %s: duplicate id", p.ID)
		}
		seen[p.ID] = true
		for _, issue := range p.PriorityIssues {
			if !issue.Valid() {
				return nil, fmt.Errorf("persona %s: unknown priority issue %q", p.ID, issue)
			}
		}
		switch p.Age {
		case domain.Age18To29, domain.Age30To44, domain.Age45To64, domain.Age65Plus:
		default:
			return nil, fmt.Errorf("persona %s: unknown age group %q", p.ID, p.Age)
		}
		if p.AvatarSeed == "" {
			p.AvatarSeed = p.ID
		}
		p.LastResponseTick = domain.NeverResponded
		out = append(out, p.Normalized())
	}
	return out, nil
}
