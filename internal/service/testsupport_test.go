package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/insightqa/insightqa/internal/domain"
)

// seqUUIDGenerator yields deterministic ids for assertions.
type seqUUIDGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *seqUUIDGenerator) NewString() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%04d", g.n)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// bagEmbedder embeds text as a bag-of-words histogram so similar texts
// land near each other under cosine similarity. Deterministic.
type bagEmbedder struct {
	mu    sync.Mutex
	calls int
	// failOn makes Embed fail for texts containing the substring.
	failOn string
	// failAfter makes Embed fail once calls exceeds it (0 = never).
	failAfter int
}

const bagDims = 32

func (e *bagEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	calls := e.calls
	e.mu.Unlock()

	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, domain.ErrEmbedding.WithDetail("induced failure")
	}
	if e.failAfter > 0 && calls > e.failAfter {
		return nil, domain.ErrEmbedding.WithDetail("induced failure after %d calls", e.failAfter)
	}

	vec := make([]float32, bagDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%bagDims]++
	}
	return vec, nil
}

// scriptedCompleter returns canned responses in order.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (c *scriptedCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, userPrompt)
	i := len(c.prompts) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "", domain.ErrModelUnavailable.WithDetail("no scripted response %d", i)
}

// recordingArchiver captures archive operations.
type recordingArchiver struct {
	mu       sync.Mutex
	puts     map[string][]byte
	deleted  []string
	putErr   error
	failPuts bool
}

func newRecordingArchiver() *recordingArchiver {
	return &recordingArchiver{puts: make(map[string][]byte)}
}

func (a *recordingArchiver) Put(ctx context.Context, key string, data []byte, contentType string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failPuts {
		if a.putErr != nil {
			return a.putErr
		}
		return fmt.Errorf("archive unavailable")
	}
	a.puts[key] = data
	return nil
}

func (a *recordingArchiver) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, key)
	delete(a.puts, key)
	return nil
}

func (a *recordingArchiver) DeletePrefix(ctx context.Context, prefix string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, prefix)
	for key := range a.puts {
		if strings.HasPrefix(key, prefix) {
			delete(a.puts, key)
		}
	}
	return nil
}
