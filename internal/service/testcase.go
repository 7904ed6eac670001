package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/insightqa/insightqa/internal/domain"
	"github.com/insightqa/insightqa/internal/telemetry"
)

const (
	// DefaultTestCaseCount is used when the caller does not specify how
	// many cases to generate.
	DefaultTestCaseCount = 3
	// MaxTestCaseCount caps a single generation request.
	MaxTestCaseCount = 20
)

const testCaseSystemPrompt = "You are a senior QA engineer. " +
	"You produce ONLY valid JSON arrays. No markdown, no explanation, no reasoning."

const jsonRepairSystemPrompt = "You ONLY fix JSON. Respond ONLY with valid JSON array."

// TestCaseService generates grounded test cases from retrieved context.
type TestCaseService struct {
	retrieval *RetrievalService
	tcRepo    TestCaseRepositoryInterface
	chunkRepo ChunkRepositoryInterface
	completer Completer
	uuidGen   UUIDGenerator
	now       func() time.Time
}

// TestCaseServiceOption customizes a TestCaseService.
type TestCaseServiceOption func(*TestCaseService)

// WithTestCaseUUIDGenerator installs a custom UUID generator (for testing).
func WithTestCaseUUIDGenerator(g UUIDGenerator) TestCaseServiceOption {
	return func(s *TestCaseService) { s.uuidGen = g }
}

// WithTestCaseClock installs a custom time source (for testing).
func WithTestCaseClock(now func() time.Time) TestCaseServiceOption {
	return func(s *TestCaseService) { s.now = now }
}

// NewTestCaseService creates a new TestCaseService instance.
func NewTestCaseService(
	retrieval *RetrievalService,
	tcRepo TestCaseRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	completer Completer,
	opts ...TestCaseServiceOption,
) *TestCaseService {
	s := &TestCaseService{
		retrieval: retrieval,
		tcRepo:    tcRepo,
		chunkRepo: chunkRepo,
		completer: completer,
		uuidGen:   &DefaultUUIDGenerator{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateInput represents the input for a test case generation request
type GenerateInput struct {
	KBID    string
	Feature string
	Count   int
	TopK    int
}

// generatedCase is the JSON shape the model is instructed to emit.
type generatedCase struct {
	Scenario       string   `json:"scenario"`
	Preconditions  []string `json:"preconditions"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expected_result"`
}

// Generate retrieves context for the feature description, asks the
// model for a strict JSON array of test cases, and persists the parsed
// result. Every returned case carries references to the retrieved
// chunks it was generated from; the model never chooses them. A request
// persists all of its cases or none.
func (s *TestCaseService) Generate(ctx context.Context, input GenerateInput) ([]domain.TestCase, error) {
	ctx, span := telemetry.StartSpan(ctx, "TestCaseService.Generate", telemetry.SpanAttributes{
		KBID:      input.KBID,
		Operation: "generate_testcases",
	})
	defer span.End()

	if strings.TrimSpace(input.Feature) == "" {
		return nil, domain.ErrInvalidParameters.WithDetail("feature description must not be empty")
	}
	count := input.Count
	if count == 0 {
		count = DefaultTestCaseCount
	}
	if count < 0 || count > MaxTestCaseCount {
		return nil, domain.ErrInvalidParameters.WithDetail("count must be between 1 and %d, got %d", MaxTestCaseCount, input.Count)
	}

	retrieved, err := s.retrieval.Retrieve(ctx, RetrieveInput{
		KBID:  input.KBID,
		Query: input.Feature,
		TopK:  input.TopK,
	})
	if err != nil {
		return nil, err
	}
	if len(retrieved) == 0 {
		return nil, domain.ErrEmptyKnowledgeBase
	}

	prompt := buildTestCasePrompt(input.Feature, count, retrieved)

	raw, err := s.completer.Complete(ctx, testCaseSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	parsed, parseErr := parseGeneratedCases(raw)
	if parseErr != nil {
		// One repair round: hand the broken output back to the model.
		repaired, repairErr := s.completer.Complete(ctx, jsonRepairSystemPrompt,
			"Fix the following JSON. Output ONLY the corrected JSON array. No explanation.\n\n"+raw)
		if repairErr != nil {
			return nil, repairErr
		}
		parsed, parseErr = parseGeneratedCases(repaired)
		if parseErr != nil {
			return nil, domain.ErrGeneration.WithDetail("model output is not a valid test case array").Wrap(parseErr)
		}
	}
	if len(parsed) == 0 {
		return nil, domain.ErrGeneration.WithDetail("model returned no test cases")
	}

	refs := make([]domain.ContextRef, len(retrieved))
	for i, rc := range retrieved {
		refs[i] = domain.ContextRef{ChunkID: rc.Chunk.ID, Score: rc.Score}
	}

	generatedAt := s.now().UTC()
	cases := make([]domain.TestCase, 0, len(parsed))
	for _, gc := range parsed {
		tc := domain.TestCase{
			ID:            s.uuidGen.NewString(),
			KBID:          input.KBID,
			GeneratedAt:   generatedAt,
			Scenario:      strings.TrimSpace(gc.Scenario),
			Preconditions: gc.Preconditions,
			Steps:         gc.Steps,
			Expected:      strings.TrimSpace(gc.ExpectedResult),
			Refs:          refs,
		}
		if err := domain.ValidateTestCase(&tc); err != nil {
			return nil, domain.ErrGeneration.WithDetail("model produced an incomplete test case").Wrap(err)
		}
		cases = append(cases, tc)
	}

	if err := s.tcRepo.CreateBatch(ctx, cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// ContextChunk is one resolved context reference of a stored test case.
// Available is false when the referenced chunk has since been deleted.
type ContextChunk struct {
	Ref       domain.ContextRef
	Text      string
	Available bool
}

// GetByID fetches a test case.
func (s *TestCaseService) GetByID(ctx context.Context, id string) (*domain.TestCase, error) {
	return s.tcRepo.GetByID(ctx, id)
}

// ListByKB returns a knowledge base's test cases.
func (s *TestCaseService) ListByKB(ctx context.Context, kbID string) ([]domain.TestCase, error) {
	return s.tcRepo.ListByKB(ctx, kbID)
}

// ResolveContext loads the chunks a test case references. Dangling
// references are returned with Available=false instead of failing the
// read.
func (s *TestCaseService) ResolveContext(ctx context.Context, tc *domain.TestCase) ([]ContextChunk, error) {
	ids := make([]string, len(tc.Refs))
	for i, ref := range tc.Refs {
		ids[i] = ref.ChunkID
	}
	byID, err := s.chunkRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ContextChunk, len(tc.Refs))
	for i, ref := range tc.Refs {
		chunk, ok := byID[ref.ChunkID]
		out[i] = ContextChunk{Ref: ref, Text: chunk.Text, Available: ok}
	}
	return out, nil
}

func buildTestCasePrompt(feature string, count int, retrieved []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, rc := range retrieved {
		fmt.Fprintf(&b, "[CONTEXT %d | document=%s]\n%s\n\n", i+1, rc.Chunk.DocumentID, rc.Chunk.Text)
	}

	return strings.TrimSpace(fmt.Sprintf(`Your job:
Generate ONLY a valid JSON array of exactly %d software test cases.

STRICT RULES:
- Output MUST be valid JSON.
- Output MUST start with '[' and end with ']'.
- No prose, no explanation, no markdown, no headings.
- Base every test case ONLY on the retrieved context below.
- Each element must include:
  "scenario", "preconditions", "steps", "expected_result"
- "preconditions" and "steps" are arrays of strings; "steps" must not be empty.

FEATURE UNDER TEST:
%s

RETRIEVED CONTEXT:
%s

Now output ONLY the JSON array. If the JSON would be invalid, FIX it first.`,
		count, feature, b.String()))
}

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)
)

// parseGeneratedCases extracts a JSON array from model output that may
// carry code fences, surrounding prose, or trailing commas.
func parseGeneratedCases(raw string) ([]generatedCase, error) {
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

	var cases []generatedCase
	if err := json.Unmarshal([]byte(candidate), &cases); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}
	return cases, nil
}
