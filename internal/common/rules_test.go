package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultFilterRules(t *testing.T) {
	rules := DefaultFilterRules()

	if len(rules.UserAgents) == 0 {
		t.Fatal("no default user agents")
	}
	var total float64
	for _, ua := range rules.UserAgents {
		total += ua.Weight
	}
	if total < 0.99 || total > 1.01 {
		t.Errorf("user agent weights sum to %f", total)
	}

	if len(rules.SpamDomains) == 0 || len(rules.BlockedContentPatterns) == 0 {
		t.Error("default filter lists are empty")
	}
}

func TestLoadFilterRules_EmptyPath(t *testing.T) {
	rules, err := LoadFilterRules("")
	if err != nil {
		t.Fatal(err)
	}
	if len(rules.BusinessKeywords) == 0 {
		t.Error("empty path should return defaults")
	}
}

func TestLoadFilterRules_ReplacesListsWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
spam_domains:
  - badsite.example
user_agents:
  - agent: "TestBot/1.0"
    weight: 1.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadFilterRules(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(rules.SpamDomains) != 1 || rules.SpamDomains[0] != "badsite.example" {
		t.Errorf("spam domains not replaced: %v", rules.SpamDomains)
	}
	if len(rules.UserAgents) != 1 || rules.UserAgents[0].Agent != "TestBot/1.0" {
		t.Errorf("user agents not replaced: %v", rules.UserAgents)
	}
	// Lists the file leaves out keep their defaults
	if len(rules.ContactKeywords) == 0 {
		t.Error("unset list lost its defaults")
	}
}

func TestLoadFilterRules_Errors(t *testing.T) {
	if _, err := LoadFilterRules("/nonexistent/rules.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("spam_domains: {not a list"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFilterRules(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
