package domain

import (
	"fmt"
	"time"
)

// LocatorStrategy identifies how an instruction's locator addresses an
// element in the primary document.
type LocatorStrategy string

const (
	LocatorByID    LocatorStrategy = "id"
	LocatorByName  LocatorStrategy = "name"
	LocatorByCSS   LocatorStrategy = "css"
	LocatorByXPath LocatorStrategy = "xpath"
)

// Action is the interaction a script instruction performs.
type Action string

const (
	ActionClick  Action = "click"
	ActionInput  Action = "input"
	ActionSelect Action = "select"
	ActionAssert Action = "assert"
)

// Instruction is one executable script step: locate an element, perform
// an action, optionally with a value.
type Instruction struct {
	Strategy LocatorStrategy
	Locator  string
	Action   Action
	Value    string
}

// Script is the executable rendition of a test case against the
// knowledge base's primary document.
type Script struct {
	ID           string
	TestCaseID   string
	DocumentID   string
	Instructions []Instruction
	GeneratedAt  time.Time
}

// ValidateScript validates a Script instance
func ValidateScript(s *Script) error {
	if s == nil {
		return fmt.Errorf("script cannot be nil")
	}
	if s.ID == "" {
		return fmt.Errorf("script ID is required")
	}
	if s.TestCaseID == "" {
		return fmt.Errorf("script TestCaseID is required")
	}
	if s.DocumentID == "" {
		return fmt.Errorf("script DocumentID is required")
	}
	if len(s.Instructions) == 0 {
		return fmt.Errorf("script must have at least one instruction")
	}
	for i, ins := range s.Instructions {
		if ins.Locator == "" {
			return fmt.Errorf("instruction %d is missing a locator", i)
		}
		if !isValidAction(ins.Action) {
			return fmt.Errorf("instruction %d has invalid action %q", i, ins.Action)
		}
	}
	return nil
}

func isValidAction(a Action) bool {
	switch a {
	case ActionClick, ActionInput, ActionSelect, ActionAssert:
		return true
	}
	return false
}
