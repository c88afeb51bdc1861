package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/onnwee/chat-triage/escalate"
)

// LoadRules reads a YAML rules file and overlays it on DefaultRules, so a
// file only needs the fields it changes. An empty path returns the defaults
// unchanged.
func LoadRules(path string) (escalate.Rules, error) {
	rules := escalate.DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse rules file: %w", err)
	}
	return rules, nil
}
