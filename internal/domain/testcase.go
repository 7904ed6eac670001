package domain

import (
	"fmt"
	"time"
)

// ContextRef is a non-owning back-reference from a test case to a chunk
// it was grounded on. Only the id and the similarity score at
// generation time are kept; a deleted chunk leaves the ref dangling,
// which readers must surface as "unavailable" rather than fail.
type ContextRef struct {
	ChunkID string
	Score   float32
}

// TestCase is a structured, grounded test case generated from retrieved
// context for a feature description.
type TestCase struct {
	ID            string
	KBID          string
	GeneratedAt   time.Time
	Scenario      string
	Preconditions []string
	Steps         []string
	Expected      string
	Refs          []ContextRef
}

// ValidateTestCase validates a TestCase instance. Every test case must
// carry at least one context reference.
func ValidateTestCase(tc *TestCase) error {
	if tc == nil {
		return fmt.Errorf("test case cannot be nil")
	}
	if tc.ID == "" {
		return fmt.Errorf("test case ID is required")
	}
	if tc.KBID == "" {
		return fmt.Errorf("test case KBID is required")
	}
	if tc.Scenario == "" {
		return fmt.Errorf("test case Scenario is required")
	}
	if len(tc.Steps) == 0 {
		return fmt.Errorf("test case must have at least one step")
	}
	if tc.Expected == "" {
		return fmt.Errorf("test case Expected is required")
	}
	if len(tc.Refs) == 0 {
		return fmt.Errorf("test case must reference at least one chunk")
	}
	return nil
}
