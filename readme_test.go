package main

import (
	"os"
	"strings"
	"testing"
)

func TestREADMEDocumentsCommands(t *testing.T) {
	content, err := os.ReadFile("README.md")
	if err != nil {
		t.Fatalf("Failed to read README.md: %v", err)
	}

	readmeText := string(content)

	if !strings.Contains(readmeText, "## Commands") {
		t.Error("README.md missing ## Commands section")
	}

	for _, cmd := range []string{"status", "pull", "push", "bootstrap", "reconcile", "conflicts"} {
		if !strings.Contains(readmeText, "`kanbansync "+cmd) {
			t.Errorf("README.md does not document %q", cmd)
		}
	}

	for _, key := range []string{"status_map", "completion_statuses", "require_confirm_flag", "backend"} {
		if !strings.Contains(readmeText, key) {
			t.Errorf("README.md does not document config key %q", key)
		}
	}
}
