// Package categorize assigns expense categories from free-text
// descriptions using a keyword rule set.
package categorize

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

type ruleFile struct {
	Default string `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// Categorizer matches descriptions against keyword rules in order.
// The first rule with a matching keyword wins.
type Categorizer struct {
	rules    []Rule
	fallback string
}

// Default returns a categorizer built from the embedded rule set.
func Default() *Categorizer {
	c, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("categorize: embedded rules are invalid: %v", err))
	}
	return c
}

// Parse builds a categorizer from YAML rule data.
func Parse(data []byte) (*Categorizer, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if f.Default == "" {
		return nil, fmt.Errorf("parse rules: default category is required")
	}
	for i, r := range f.Rules {
		if r.Category == "" {
			return nil, fmt.Errorf("parse rules: rule %d has no category", i)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("parse rules: category %s has no keywords", r.Category)
		}
	}
	return &Categorizer{rules: f.Rules, fallback: f.Default}, nil
}

// LoadFile builds a categorizer from a YAML rule file on disk.
func LoadFile(path string) (*Categorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(data)
}

// Categorize returns the category for a description. Matching is
// case-insensitive substring search over the rule keywords.
func (c *Categorizer) Categorize(description string) string {
	desc := strings.ToLower(description)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, kw) {
				return r.Category
			}
		}
	}
	return c.fallback
}

// Categories returns the distinct categories the rule set can produce,
// fallback included, in rule order.
func (c *Categorizer) Categories() []string {
	out := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		out = append(out, r.Category)
	}
	return append(out, c.fallback)
}
