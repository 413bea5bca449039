package chat

import (
	"strings"
	"testing"
)

func TestSystemPromptCarriesTheToolRules(t *testing.T) {
	for _, required := range []string{
		"search_id",
		"time_range",
		"YYYYMMDDHHMM",
		"first day of the month",
		"yesterday",
		"February 2, 2025 23:29",
	} {
		if !strings.Contains(SystemPrompt, required) {
			t.Errorf("system prompt missing %q", required)
		}
	}
}

func TestSynthesisPromptHasAllThreeParts(t *testing.T) {
	for _, part := range []string{"Summarize", "errors or issues", "follow-up"} {
		if !strings.Contains(SynthesisPrompt, part) {
			t.Errorf("synthesis prompt missing %q", part)
		}
	}
}

func TestToolSpecSchema(t *testing.T) {
	spec := SearchLogsToolSpec()
	if spec.Name != SearchLogsToolName {
		t.Errorf("name = %q", spec.Name)
	}
	props, ok := spec.Parameters["properties"].(map[string]any)
	if !ok {
		t.Fatal("parameters missing properties")
	}
	for _, field := range []string{"search_id", "time_ranges"} {
		if _, ok := props[field]; !ok {
			t.Errorf("schema missing %q", field)
		}
	}
	required, ok := spec.Parameters["required"].([]string)
	if !ok || len(required) != 2 {
		t.Errorf("required = %v, want both arguments", spec.Parameters["required"])
	}
}
