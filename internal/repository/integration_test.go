//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightqa/insightqa/internal/domain"
	"github.com/insightqa/insightqa/internal/testutil"
)

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func createTestKB(ctx context.Context, t *testing.T, repo *KnowledgeBaseRepository, name string) *domain.KnowledgeBase {
	t.Helper()
	kb := domain.NewKnowledgeBase(uuid.NewString(), name, now())
	require.NoError(t, repo.Create(ctx, kb))
	return kb
}

func createTestDocument(ctx context.Context, t *testing.T, repo *DocumentRepository, kbID string, role domain.DocumentRole) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:         uuid.NewString(),
		KBID:       kbID,
		Filename:   "doc.txt",
		MediaType:  "text/plain",
		Role:       role,
		Text:       "document body",
		UploadedAt: now(),
	}
	require.NoError(t, repo.Create(ctx, doc))
	return doc
}

func TestKnowledgeBaseRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	kbRepo := NewKnowledgeBaseRepository(pool)
	docRepo := NewDocumentRepository(pool)

	kb := createTestKB(ctx, t, kbRepo, "checkout-kb")

	retrieved, err := kbRepo.GetByID(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, kb.ID, retrieved.ID)
	assert.Equal(t, "checkout-kb", retrieved.Name)
	assert.Equal(t, kb.CreatedAt, retrieved.CreatedAt)
	assert.Empty(t, retrieved.DocumentIDs)

	// Duplicate names are rejected by the unique constraint.
	dup := domain.NewKnowledgeBase(uuid.NewString(), "checkout-kb", now())
	assert.ErrorIs(t, kbRepo.Create(ctx, dup), domain.ErrDuplicateName)

	doc := createTestDocument(ctx, t, docRepo, kb.ID, domain.DocumentRoleSupporting)
	retrieved, err = kbRepo.GetByID(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID}, retrieved.DocumentIDs)

	other := createTestKB(ctx, t, kbRepo, "other")
	list, err := kbRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, kbRepo.Rename(ctx, kb.ID, "renamed"))
	assert.ErrorIs(t, kbRepo.Rename(ctx, other.ID, "renamed"), domain.ErrDuplicateName)
	assert.ErrorIs(t, kbRepo.Rename(ctx, uuid.NewString(), "x"), domain.ErrKnowledgeBaseNotFound)

	require.NoError(t, kbRepo.Delete(ctx, kb.ID))
	_, err = kbRepo.GetByID(ctx, kb.ID)
	assert.ErrorIs(t, err, domain.ErrKnowledgeBaseNotFound)
	assert.ErrorIs(t, kbRepo.Delete(ctx, kb.ID), domain.ErrKnowledgeBaseNotFound)

	// The document went with its knowledge base.
	_, err = docRepo.GetByID(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_RolesAndDelete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	kbRepo := NewKnowledgeBaseRepository(pool)
	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	kb := createTestKB(ctx, t, kbRepo, "kb")
	primary := createTestDocument(ctx, t, docRepo, kb.ID, domain.DocumentRolePrimary)
	supporting := createTestDocument(ctx, t, docRepo, kb.ID, domain.DocumentRoleSupporting)

	docs, err := docRepo.ListByKB(ctx, kb.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	primaries, err := docRepo.ListByKBAndRole(ctx, kb.ID, domain.DocumentRolePrimary)
	require.NoError(t, err)
	require.Len(t, primaries, 1)
	assert.Equal(t, primary.ID, primaries[0].ID)

	chunks := []domain.Chunk{
		{ID: uuid.NewString(), DocumentID: supporting.ID, KBID: kb.ID, Index: 0, Text: "first"},
		{ID: uuid.NewString(), DocumentID: supporting.ID, KBID: kb.ID, Index: 1, Text: "second"},
	}
	require.NoError(t, chunkRepo.CreateBatch(ctx, chunks))

	// Deleting a document cascades its chunks.
	require.NoError(t, docRepo.Delete(ctx, supporting.ID))
	remaining, err := chunkRepo.ListByDocument(ctx, supporting.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	assert.ErrorIs(t, docRepo.Delete(ctx, supporting.ID), domain.ErrDocumentNotFound)
}

func TestChunkRepository_BatchAndLookup(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	kbRepo := NewKnowledgeBaseRepository(pool)
	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	kb := createTestKB(ctx, t, kbRepo, "kb")
	doc := createTestDocument(ctx, t, docRepo, kb.ID, domain.DocumentRoleSupporting)

	chunks := []domain.Chunk{
		{ID: uuid.NewString(), DocumentID: doc.ID, KBID: kb.ID, Index: 1, Text: "second"},
		{ID: uuid.NewString(), DocumentID: doc.ID, KBID: kb.ID, Index: 0, Text: "first"},
		{ID: uuid.NewString(), DocumentID: doc.ID, KBID: kb.ID, Index: 2, Text: "third"},
	}
	require.NoError(t, chunkRepo.CreateBatch(ctx, chunks))

	listed, err := chunkRepo.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, c := range listed {
		assert.Equal(t, i, c.Index)
	}

	// Missing ids are omitted rather than failing the whole lookup.
	byID, err := chunkRepo.GetByIDs(ctx, []string{chunks[0].ID, uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "second", byID[chunks[0].ID].Text)

	require.NoError(t, chunkRepo.DeleteByDocument(ctx, doc.ID))
	listed, err = chunkRepo.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestTestCaseRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	kbRepo := NewKnowledgeBaseRepository(pool)
	tcRepo := NewTestCaseRepository(pool)

	kb := createTestKB(ctx, t, kbRepo, "kb")

	cases := []domain.TestCase{
		{
			ID:            uuid.NewString(),
			KBID:          kb.ID,
			GeneratedAt:   now(),
			Scenario:      "Apply a discount code",
			Preconditions: []string{"cart has one item"},
			Steps:         []string{"enter code", "press apply"},
			Expected:      "total drops",
			Refs:          []domain.ContextRef{{ChunkID: uuid.NewString(), Score: 0.92}},
		},
		{
			ID:          uuid.NewString(),
			KBID:        kb.ID,
			GeneratedAt: now(),
			Scenario:    "Reject an expired code",
			Steps:       []string{"enter expired code"},
			Expected:    "error shown",
			Refs:        []domain.ContextRef{{ChunkID: uuid.NewString(), Score: 0.5}},
		},
	}
	require.NoError(t, tcRepo.CreateBatch(ctx, cases))

	retrieved, err := tcRepo.GetByID(ctx, cases[0].ID)
	require.NoError(t, err)
	assert.Equal(t, cases[0].Scenario, retrieved.Scenario)
	assert.Equal(t, cases[0].Preconditions, retrieved.Preconditions)
	assert.Equal(t, cases[0].Steps, retrieved.Steps)
	assert.Equal(t, cases[0].Expected, retrieved.Expected)
	require.Len(t, retrieved.Refs, 1)
	assert.Equal(t, cases[0].Refs[0].ChunkID, retrieved.Refs[0].ChunkID)
	assert.InDelta(t, 0.92, retrieved.Refs[0].Score, 1e-6)

	listed, err := tcRepo.ListByKB(ctx, kb.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	_, err = tcRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrTestCaseNotFound)

	// Deleting the knowledge base cascades its test cases.
	require.NoError(t, kbRepo.Delete(ctx, kb.ID))
	_, err = tcRepo.GetByID(ctx, cases[0].ID)
	assert.ErrorIs(t, err, domain.ErrTestCaseNotFound)
}

func TestTestCaseRepository_CreateBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	kbRepo := NewKnowledgeBaseRepository(pool)
	tcRepo := NewTestCaseRepository(pool)

	kb := createTestKB(ctx, t, kbRepo, "kb")

	// The duplicated id makes the second insert fail; the first must
	// not survive on its own.
	dup := uuid.NewString()
	cases := []domain.TestCase{
		{ID: dup, KBID: kb.ID, GeneratedAt: now(), Scenario: "first", Steps: []string{"a"}, Expected: "ok"},
		{ID: dup, KBID: kb.ID, GeneratedAt: now(), Scenario: "second", Steps: []string{"b"}, Expected: "ok"},
	}
	require.Error(t, tcRepo.CreateBatch(ctx, cases))

	listed, err := tcRepo.ListByKB(ctx, kb.ID)
	require.NoError(t, err)
	assert.Empty(t, listed, "a failed batch must persist nothing")
}

func TestScriptRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	kbRepo := NewKnowledgeBaseRepository(pool)
	docRepo := NewDocumentRepository(pool)
	tcRepo := NewTestCaseRepository(pool)
	scriptRepo := NewScriptRepository(pool)

	kb := createTestKB(ctx, t, kbRepo, "kb")
	doc := createTestDocument(ctx, t, docRepo, kb.ID, domain.DocumentRolePrimary)

	tc := domain.TestCase{
		ID:          uuid.NewString(),
		KBID:        kb.ID,
		GeneratedAt: now(),
		Scenario:    "scenario",
		Steps:       []string{"step"},
		Expected:    "expected",
		Refs:        []domain.ContextRef{{ChunkID: uuid.NewString(), Score: 1}},
	}
	require.NoError(t, tcRepo.CreateBatch(ctx, []domain.TestCase{tc}))

	script := &domain.Script{
		ID:         uuid.NewString(),
		TestCaseID: tc.ID,
		DocumentID: doc.ID,
		Instructions: []domain.Instruction{
			{Strategy: domain.LocatorByID, Locator: "code-field", Action: domain.ActionInput, Value: "SAVE10"},
			{Strategy: domain.LocatorByCSS, Locator: "button.btn", Action: domain.ActionClick},
		},
		GeneratedAt: now(),
	}
	require.NoError(t, scriptRepo.Create(ctx, script))

	retrieved, err := scriptRepo.GetByID(ctx, script.ID)
	require.NoError(t, err)
	assert.Equal(t, script.TestCaseID, retrieved.TestCaseID)
	assert.Equal(t, script.DocumentID, retrieved.DocumentID)
	assert.Equal(t, script.Instructions, retrieved.Instructions)

	listed, err := scriptRepo.ListByTestCase(ctx, tc.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, script.ID, listed[0].ID)

	_, err = scriptRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrScriptNotFound)

	require.NoError(t, testutil.TruncateAll(ctx, pool))
	listed, err = scriptRepo.ListByTestCase(ctx, tc.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
