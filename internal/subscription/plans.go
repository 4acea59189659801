package subscription

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultPlans []byte

type Plan struct {
	ID    string   `yaml:"id" json:"id"`
	Name  string   `yaml:"name" json:"name"`
	Price float64  `yaml:"price" json:"price"`
	Type  PlanType `yaml:"type" json:"type"`
}

// Catalogue is the set of purchasable plans keyed by id.
type Catalogue struct {
	plans map[string]Plan
}

// DefaultCatalogue returns the embedded monthly/yearly plans.
func DefaultCatalogue() *Catalogue {
	c, err := ParseCatalogue(defaultPlans)
	if err != nil {
		panic(fmt.Sprintf("subscription: embedded plans invalid: %v", err))
	}
	return c
}

// LoadCatalogue reads plans from path; an empty path yields the default catalogue.
func LoadCatalogue(path string) (*Catalogue, error) {
	if path == "" {
		return DefaultCatalogue(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans %s: %w", path, err)
	}
	return ParseCatalogue(raw)
}

func ParseCatalogue(raw []byte) (*Catalogue, error) {
	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}
	c := &Catalogue{plans: make(map[string]Plan, len(doc.Plans))}
	for _, p := range doc.Plans {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("plan missing id or name")
		}
		if _, ok := p.Type.Duration(); !ok {
			return nil, fmt.Errorf("plan %s: unknown type %q", p.ID, p.Type)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("plan %s: negative price", p.ID)
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, fmt.Errorf("plan %s declared twice", p.ID)
		}
		c.plans[p.ID] = p
	}
	if len(c.plans) == 0 {
		return nil, fmt.Errorf("no plans defined")
	}
	return c, nil
}

func (c *Catalogue) Plan(id string) (Plan, bool) {
	p, ok := c.plans[id]
	return p, ok
}

// Plans lists plans ordered by price.
func (c *Catalogue) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}
