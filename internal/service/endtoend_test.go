package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightqa/insightqa/internal/domain"
)

// Walks the whole pipeline the way a client would: knowledge base
// creation, ingestion of a primary page and a supporting document,
// grounded test case generation, script generation against the page,
// and finally deletion with a full cascade.
func TestCheckoutPipeline(t *testing.T) {
	kb := newKBFixture(t)
	ctx := context.Background()

	completer := &scriptedCompleter{responses: []string{
		`[{
			"scenario": "Apply a valid discount code at checkout",
			"preconditions": ["cart contains one item priced $100.00"],
			"steps": ["enter code SAVE10", "press apply", "verify the total drops to $90.00"],
			"expected_result": "the order total is $90.00"
		}]`,
		validMappingJSON,
	}}

	retrieval := NewRetrievalService(kb.store.KnowledgeBases(), kb.store.Chunks(), kb.vectors, kb.embedder)
	tcSvc := NewTestCaseService(retrieval, kb.store.TestCases(), kb.store.Chunks(), completer,
		WithTestCaseUUIDGenerator(&seqUUIDGenerator{}),
		WithTestCaseClock(fixedClock(testTime)),
	)
	scriptSvc := NewScriptService(kb.store.TestCases(), kb.store.Documents(), kb.store.Scripts(), completer,
		WithScriptUUIDGenerator(&seqUUIDGenerator{}),
		WithScriptClock(fixedClock(testTime)),
	)

	created, err := kb.svc.Create(ctx, CreateInput{Name: "checkout-kb"})
	require.NoError(t, err)

	primary, err := kb.svc.IngestDocument(ctx, IngestDocumentInput{
		KBID:        created.ID,
		Filename:    "checkout.html",
		ContentType: "text/html",
		Role:        domain.DocumentRolePrimary,
		Data:        []byte(checkoutPage),
	})
	require.NoError(t, err)

	_, err = kb.svc.IngestDocument(ctx, IngestDocumentInput{
		KBID:     created.ID,
		Filename: "discounts.md",
		Role:     domain.DocumentRoleSupporting,
		Data: []byte("# Discount codes\n\nA valid discount code reduces the order total " +
			"by its percentage. Expired codes are rejected with an error message."),
	})
	require.NoError(t, err)

	cases, err := tcSvc.Generate(ctx, GenerateInput{
		KBID:    created.ID,
		Feature: "discount codes at checkout",
		Count:   1,
	})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	tc := cases[0]
	assert.Equal(t, "Apply a valid discount code at checkout", tc.Scenario)
	require.NotEmpty(t, tc.Refs)

	// Every ref must resolve to a live chunk of this knowledge base.
	resolved, err := tcSvc.ResolveContext(ctx, &tc)
	require.NoError(t, err)
	for _, cc := range resolved {
		assert.True(t, cc.Available)
	}

	script, err := scriptSvc.Generate(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, primary.ID, script.DocumentID)
	require.Len(t, script.Instructions, 3)
	assert.Equal(t, domain.LocatorByID, script.Instructions[0].Strategy)
	assert.Equal(t, "code-field", script.Instructions[0].Locator)

	// Deleting the knowledge base removes everything derived from it.
	require.NoError(t, kb.svc.Delete(ctx, created.ID))

	_, err = kb.svc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrKnowledgeBaseNotFound)

	count, err := kb.vectors.Count(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = tcSvc.GetByID(ctx, tc.ID)
	assert.ErrorIs(t, err, domain.ErrTestCaseNotFound)

	_, err = scriptSvc.GetByID(ctx, script.ID)
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)
}
