package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/insightqa/insightqa/internal/domain"
	"github.com/insightqa/insightqa/internal/htmldoc"
	"github.com/insightqa/insightqa/internal/telemetry"
)

const scriptSystemPrompt = "You are an expert QA automation engineer. " +
	"You produce ONLY valid JSON arrays. No markdown, no explanation, no reasoning."

// ScriptService turns stored test cases into executable UI scripts
// against the knowledge base's primary document.
type ScriptService struct {
	tcRepo     TestCaseRepositoryInterface
	docRepo    DocumentRepositoryInterface
	scriptRepo ScriptRepositoryInterface
	completer  Completer
	uuidGen    UUIDGenerator
	now        func() time.Time
}

// ScriptServiceOption customizes a ScriptService.
type ScriptServiceOption func(*ScriptService)

// WithScriptUUIDGenerator installs a custom UUID generator (for testing).
func WithScriptUUIDGenerator(g UUIDGenerator) ScriptServiceOption {
	return func(s *ScriptService) { s.uuidGen = g }
}

// WithScriptClock installs a custom time source (for testing).
func WithScriptClock(now func() time.Time) ScriptServiceOption {
	return func(s *ScriptService) { s.now = now }
}

// NewScriptService creates a new ScriptService instance.
func NewScriptService(
	tcRepo TestCaseRepositoryInterface,
	docRepo DocumentRepositoryInterface,
	scriptRepo ScriptRepositoryInterface,
	completer Completer,
	opts ...ScriptServiceOption,
) *ScriptService {
	s := &ScriptService{
		tcRepo:     tcRepo,
		docRepo:    docRepo,
		scriptRepo: scriptRepo,
		completer:  completer,
		uuidGen:    &DefaultUUIDGenerator{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mappedStep is the JSON shape the model emits for each test step.
// Element is an index into the candidate list, or -1 when the step
// cannot be mapped to any element.
type mappedStep struct {
	Step    int    `json:"step"`
	Element int    `json:"element"`
	Action  string `json:"action"`
	Value   string `json:"value"`
}

// Generate maps a test case's steps onto the interactive elements of
// the knowledge base's single primary document. The model only picks
// element indexes and actions; locators come from the parsed document,
// so a script can never reference an element that does not exist.
func (s *ScriptService) Generate(ctx context.Context, testCaseID string) (*domain.Script, error) {
	ctx, span := telemetry.StartSpan(ctx, "ScriptService.Generate", telemetry.SpanAttributes{
		TestCaseID: testCaseID,
		Operation:  "generate_script",
	})
	defer span.End()

	tc, err := s.tcRepo.GetByID(ctx, testCaseID)
	if err != nil {
		return nil, err
	}

	primaries, err := s.docRepo.ListByKBAndRole(ctx, tc.KBID, domain.DocumentRolePrimary)
	if err != nil {
		return nil, err
	}
	switch {
	case len(primaries) == 0:
		return nil, domain.ErrNoPrimaryDocument
	case len(primaries) > 1:
		return nil, domain.ErrAmbiguousPrimaryDocument.WithDetail("found %d primary documents", len(primaries))
	}
	primary := primaries[0]

	candidates, err := htmldoc.ParseCandidates(primary.Text)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, domain.ErrUnresolvableStep.WithDetail("primary document %q has no interactive elements", primary.Filename)
	}

	prompt := buildScriptPrompt(tc, candidates)

	raw, err := s.completer.Complete(ctx, scriptSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	mapped, parseErr := parseMappedSteps(raw)
	if parseErr != nil {
		repaired, repairErr := s.completer.Complete(ctx, jsonRepairSystemPrompt,
			"Fix the following JSON. Output ONLY the corrected JSON array. No explanation.\n\n"+raw)
		if repairErr != nil {
			return nil, repairErr
		}
		mapped, parseErr = parseMappedSteps(repaired)
		if parseErr != nil {
			return nil, domain.ErrGeneration.WithDetail("model output is not a valid step mapping").Wrap(parseErr)
		}
	}

	instructions, err := resolveInstructions(tc.Steps, mapped, candidates)
	if err != nil {
		return nil, err
	}

	script := &domain.Script{
		ID:           s.uuidGen.NewString(),
		TestCaseID:   tc.ID,
		DocumentID:   primary.ID,
		Instructions: instructions,
		GeneratedAt:  s.now().UTC(),
	}
	if err := s.scriptRepo.Create(ctx, script); err != nil {
		return nil, err
	}
	return script, nil
}

// GetByID fetches a script.
func (s *ScriptService) GetByID(ctx context.Context, id string) (*domain.Script, error) {
	return s.scriptRepo.GetByID(ctx, id)
}

// ListByTestCase returns the scripts generated for a test case.
func (s *ScriptService) ListByTestCase(ctx context.Context, testCaseID string) ([]domain.Script, error) {
	return s.scriptRepo.ListByTestCase(ctx, testCaseID)
}

// resolveInstructions turns the model's step mapping into concrete
// instructions. A step the model could not map, or mapped to a
// non-existent element, fails the whole generation.
func resolveInstructions(steps []string, mapped []mappedStep, candidates []htmldoc.Candidate) ([]domain.Instruction, error) {
	byStep := make(map[int]mappedStep, len(mapped))
	for _, m := range mapped {
		byStep[m.Step] = m
	}

	instructions := make([]domain.Instruction, 0, len(steps))
	for i, step := range steps {
		m, ok := byStep[i+1]
		if !ok || m.Element < 0 {
			return nil, domain.ErrUnresolvableStep.WithDetail("step %d: %s", i+1, step)
		}
		if m.Element >= len(candidates) {
			return nil, domain.ErrUnresolvableStep.WithDetail("step %d maps to unknown element %d: %s", i+1, m.Element, step)
		}
		action := domain.Action(strings.ToLower(strings.TrimSpace(m.Action)))
		switch action {
		case domain.ActionClick, domain.ActionInput, domain.ActionSelect, domain.ActionAssert:
		default:
			return nil, domain.ErrGeneration.WithDetail("step %d has invalid action %q", i+1, m.Action)
		}

		c := candidates[m.Element]
		instructions = append(instructions, domain.Instruction{
			Strategy: c.Strategy,
			Locator:  c.Locator,
			Action:   action,
			Value:    m.Value,
		})
	}
	return instructions, nil
}

func buildScriptPrompt(tc *domain.TestCase, candidates []htmldoc.Candidate) string {
	var elements strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&elements, "[%d] tag=%s", i, c.Tag)
		if c.ID != "" {
			fmt.Fprintf(&elements, " id=%q", c.ID)
		}
		if c.Name != "" {
			fmt.Fprintf(&elements, " name=%q", c.Name)
		}
		if c.Type != "" {
			fmt.Fprintf(&elements, " type=%q", c.Type)
		}
		if c.Placeholder != "" {
			fmt.Fprintf(&elements, " placeholder=%q", c.Placeholder)
		}
		if c.Text != "" {
			fmt.Fprintf(&elements, " text=%q", c.Text)
		}
		elements.WriteString("\n")
	}

	var steps strings.Builder
	for i, step := range tc.Steps {
		fmt.Fprintf(&steps, "%d. %s\n", i+1, step)
	}

	return strings.TrimSpace(fmt.Sprintf(`Your job:
Map each test step to exactly one UI element and one action.

STRICT RULES:
- Output MUST be valid JSON.
- Output MUST start with '[' and end with ']'.
- No prose, no explanation, no markdown.
- Output one object per step:
  {"step": <step number>, "element": <element index>, "action": "<click|input|select|assert>", "value": "<text to type, option to pick, or expected text; empty for click>"}
- "element" MUST be an index from the UI ELEMENTS list.
- If a step cannot be mapped to any listed element, set "element" to -1.

SCENARIO:
%s

TEST STEPS:
%s
UI ELEMENTS:
%s
Now output ONLY the JSON array.`,
		tc.Scenario, steps.String(), elements.String()))
}

// parseMappedSteps extracts the model's JSON step mapping, tolerating
// code fences and trailing commas.
func parseMappedSteps(raw string) ([]mappedStep, error) {
	raw = strings.TrimSpace(raw)

	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[1])
	}

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array found in output")
	}
	candidate := trailingCommaRe.ReplaceAllString(raw[start:end+1], "$1")

	var mapped []mappedStep
	if err := json.Unmarshal([]byte(candidate), &mapped); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}
	return mapped, nil
}
