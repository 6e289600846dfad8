package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Rule overrides discovery settings for one search key. Zero fields keep the
// global value.
type Rule struct {
	DesiredCount int    `toml:"desired_count"`
	BatchSize    int    `toml:"batch_size"`
	MaxBatches   int    `toml:"max_batches"`
	EmailPattern string `toml:"email_pattern"`
	OrderBy      string `toml:"order_by"`
}

// Rules maps a search key (member type) to its overrides, e.g.
//
//	[GOLD]
//	desired_count = 10
//	email_pattern = "%@gold.example.com%"
type Rules map[string]Rule

// LoadRules reads a rules file. A missing file yields no rules; unknown keys
// inside a rule are an error so typos do not silently fall back to defaults.
func LoadRules(path string) (Rules, error) {
	rules := Rules{}
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return rules, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	md, err := toml.Decode(string(data), &rules)
	if err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown rule keys: %s", strings.Join(keys, ", "))
	}
	for key, r := range rules {
		if r.DesiredCount < 0 || r.BatchSize < 0 || r.MaxBatches < 0 {
			return nil, fmt.Errorf("rule %s: counts must not be negative", key)
		}
	}
	return rules, nil
}

// For returns the rule for searchKey, matching case-insensitively when there
// is no exact entry.
func (r Rules) For(searchKey string) (Rule, bool) {
	if rule, ok := r[searchKey]; ok {
		return rule, true
	}
	for key, rule := range r {
		if strings.EqualFold(key, searchKey) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Apply returns d with the rule's non-zero fields applied.
func (rule Rule) Apply(d DiscoveryConfig) DiscoveryConfig {
	if rule.DesiredCount > 0 {
		d.DesiredCount = rule.DesiredCount
	}
	if rule.BatchSize > 0 {
		d.BatchSize = rule.BatchSize
	}
	if rule.MaxBatches > 0 {
		d.MaxBatches = rule.MaxBatches
	}
	if rule.EmailPattern != "" {
		d.EmailPattern = rule.EmailPattern
	}
	if rule.OrderBy != "" {
		d.OrderBy = rule.OrderBy
	}
	return d
}
