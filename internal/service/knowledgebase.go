package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/insightqa/insightqa/internal/chunker"
	"github.com/insightqa/insightqa/internal/domain"
	"github.com/insightqa/insightqa/internal/extract"
	"github.com/insightqa/insightqa/internal/telemetry"
	"github.com/insightqa/insightqa/internal/vectorstore"
)

// maxConcurrentEmbeddings bounds parallel embedding calls per ingestion.
const maxConcurrentEmbeddings = 4

// KnowledgeBaseService handles business logic for knowledge bases and
// document ingestion.
type KnowledgeBaseService struct {
	kbRepo    KnowledgeBaseRepositoryInterface
	docRepo   DocumentRepositoryInterface
	chunkRepo ChunkRepositoryInterface
	vectors   VectorStoreInterface
	extractor ExtractorInterface
	embedder  Embedder
	archiver  Archiver
	chunkCfg  chunker.Config
	uuidGen   UUIDGenerator
	locks     *kbLocks
	now       func() time.Time
}

// KnowledgeBaseServiceOption customizes a KnowledgeBaseService.
type KnowledgeBaseServiceOption func(*KnowledgeBaseService)

// WithArchiver enables raw-upload archiving to object storage.
func WithArchiver(a Archiver) KnowledgeBaseServiceOption {
	return func(s *KnowledgeBaseService) { s.archiver = a }
}

// WithChunkConfig overrides the default chunk geometry.
func WithChunkConfig(cfg chunker.Config) KnowledgeBaseServiceOption {
	return func(s *KnowledgeBaseService) { s.chunkCfg = cfg }
}

// WithUUIDGenerator installs a custom UUID generator (for testing).
func WithUUIDGenerator(g UUIDGenerator) KnowledgeBaseServiceOption {
	return func(s *KnowledgeBaseService) { s.uuidGen = g }
}

// WithClock installs a custom time source (for testing).
func WithClock(now func() time.Time) KnowledgeBaseServiceOption {
	return func(s *KnowledgeBaseService) { s.now = now }
}

// NewKnowledgeBaseService creates a new KnowledgeBaseService instance.
func NewKnowledgeBaseService(
	kbRepo KnowledgeBaseRepositoryInterface,
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	vectors VectorStoreInterface,
	extractor ExtractorInterface,
	embedder Embedder,
	opts ...KnowledgeBaseServiceOption,
) *KnowledgeBaseService {
	s := &KnowledgeBaseService{
		kbRepo:    kbRepo,
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		vectors:   vectors,
		extractor: extractor,
		embedder:  embedder,
		chunkCfg:  chunker.DefaultConfig(),
		uuidGen:   &DefaultUUIDGenerator{},
		locks:     &kbLocks{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput represents the input for creating a knowledge base
type CreateInput struct {
	Name string
}

// Create creates an empty knowledge base with a unique name.
func (s *KnowledgeBaseService) Create(ctx context.Context, input CreateInput) (*domain.KnowledgeBase, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeBaseService.Create", telemetry.SpanAttributes{
		Operation: "create",
	})
	defer span.End()

	name := strings.TrimSpace(input.Name)
	if err := domain.ValidateKnowledgeBaseName(name); err != nil {
		return nil, err
	}

	kb := domain.NewKnowledgeBase(s.uuidGen.NewString(), name, s.now().UTC())
	if err := s.kbRepo.Create(ctx, kb); err != nil {
		return nil, err
	}
	return kb, nil
}

// GetByID fetches a knowledge base.
func (s *KnowledgeBaseService) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	return s.kbRepo.GetByID(ctx, id)
}

// List returns all knowledge bases.
func (s *KnowledgeBaseService) List(ctx context.Context) ([]domain.KnowledgeBase, error) {
	return s.kbRepo.List(ctx)
}

// Rename changes a knowledge base's name; contents are untouched.
func (s *KnowledgeBaseService) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if err := domain.ValidateKnowledgeBaseName(name); err != nil {
		return err
	}
	return s.kbRepo.Rename(ctx, id, name)
}

// Delete removes a knowledge base and everything derived from it:
// documents, chunks, vectors, test cases, scripts, and archived
// uploads. It waits for in-flight ingestion on the same base.
func (s *KnowledgeBaseService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeBaseService.Delete", telemetry.SpanAttributes{
		KBID:      id,
		Operation: "delete",
	})
	defer span.End()

	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.kbRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.vectors.DeleteAll(ctx, id); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if s.archiver != nil {
		if err := s.archiver.DeletePrefix(ctx, archivePrefix(id)); err != nil {
			// Orphaned archive objects are harmless; report and move on.
			telemetry.CaptureError(ctx, err)
		}
	}
	return nil
}

// IngestDocumentInput represents the input for ingesting a document
type IngestDocumentInput struct {
	KBID        string
	Filename    string
	ContentType string
	Role        domain.DocumentRole
	Data        []byte
}

// IngestDocument extracts, chunks, embeds, and persists a document.
// Nothing is persisted unless every chunk embeds successfully: the
// knowledge base either gains the whole document or stays unchanged.
func (s *KnowledgeBaseService) IngestDocument(ctx context.Context, input IngestDocumentInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeBaseService.IngestDocument", telemetry.SpanAttributes{
		KBID:      input.KBID,
		Operation: "ingest",
	})
	defer span.End()

	if !domain.IsValidDocumentRole(input.Role) {
		return nil, domain.ErrInvalidRole.WithDetail("%q", input.Role)
	}
	if len(input.Data) == 0 {
		return nil, domain.ErrCorruptFile.WithDetail("empty upload")
	}

	mediaType := extract.DetectMediaType(input.Filename, input.ContentType)
	text, err := s.extractor.Extract(input.Data, mediaType)
	if err != nil {
		return nil, err
	}
	// A decodable file with no text to index (a scanned PDF, say) is
	// unsupported, not corrupt.
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrUnsupportedFormat.WithDetail("no text extracted from %q", input.Filename)
	}

	spans, err := chunker.ChunkWithConfig(text, s.chunkCfg)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, domain.ErrUnsupportedFormat.WithDetail("no text extracted from %q", input.Filename)
	}

	unlock := s.locks.lock(input.KBID)
	defer unlock()

	if _, err := s.kbRepo.GetByID(ctx, input.KBID); err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:         s.uuidGen.NewString(),
		KBID:       input.KBID,
		Filename:   input.Filename,
		MediaType:  mediaType,
		Role:       input.Role,
		Text:       text,
		UploadedAt: s.now().UTC(),
	}

	chunks := make([]domain.Chunk, len(spans))
	for i, spanText := range spans {
		chunks[i] = domain.Chunk{
			ID:         s.uuidGen.NewString(),
			DocumentID: doc.ID,
			KBID:       input.KBID,
			Index:      i,
			Text:       spanText,
		}
	}

	// Embed everything before touching storage so a mid-document
	// embedding failure leaves the knowledge base unchanged.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEmbeddings)
	for i := range chunks {
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, chunks[i].Text)
			if err != nil {
				return err
			}
			chunks[i].Embedding = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.archiver != nil {
		doc.ArchiveKey = path.Join(archivePrefix(input.KBID), doc.ID, input.Filename)
		if err := s.archiver.Put(ctx, doc.ArchiveKey, input.Data, mediaType); err != nil {
			return nil, fmt.Errorf("failed to archive upload: %w", err)
		}
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		s.deleteArchived(ctx, doc)
		return nil, err
	}
	if err := s.chunkRepo.CreateBatch(ctx, chunks); err != nil {
		s.rollbackIngest(ctx, doc, nil)
		return nil, err
	}

	stored := make([]string, 0, len(chunks))
	for i := range chunks {
		meta := vectorstore.Metadata{
			DocumentID: doc.ID,
			Role:       doc.Role,
			Index:      chunks[i].Index,
		}
		if err := s.vectors.Upsert(ctx, input.KBID, chunks[i].ID, chunks[i].Embedding, meta); err != nil {
			s.rollbackIngest(ctx, doc, stored)
			return nil, fmt.Errorf("failed to store vector: %w", err)
		}
		stored = append(stored, chunks[i].ID)
	}

	doc.Text = text
	return doc, nil
}

// rollbackIngest undoes a partially persisted ingestion.
func (s *KnowledgeBaseService) rollbackIngest(ctx context.Context, doc *domain.Document, storedChunkIDs []string) {
	for _, chunkID := range storedChunkIDs {
		if err := s.vectors.Delete(ctx, doc.KBID, chunkID); err != nil {
			telemetry.CaptureError(ctx, err)
		}
	}
	if err := s.chunkRepo.DeleteByDocument(ctx, doc.ID); err != nil {
		telemetry.CaptureError(ctx, err)
	}
	if err := s.docRepo.Delete(ctx, doc.ID); err != nil {
		telemetry.CaptureError(ctx, err)
	}
	s.deleteArchived(ctx, doc)
}

// deleteArchived removes a document's archived upload after a failed
// ingestion. An orphaned archive object is harmless, so failures are
// reported rather than propagated.
func (s *KnowledgeBaseService) deleteArchived(ctx context.Context, doc *domain.Document) {
	if s.archiver == nil || doc.ArchiveKey == "" {
		return
	}
	if err := s.archiver.Delete(ctx, doc.ArchiveKey); err != nil {
		telemetry.CaptureError(ctx, err)
	}
}

// GetDocument fetches a document within a knowledge base.
func (s *KnowledgeBaseService) GetDocument(ctx context.Context, kbID, documentID string) (*domain.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.KBID != kbID {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// ListDocuments returns a knowledge base's documents in upload order.
func (s *KnowledgeBaseService) ListDocuments(ctx context.Context, kbID string) ([]domain.Document, error) {
	if _, err := s.kbRepo.GetByID(ctx, kbID); err != nil {
		return nil, err
	}
	return s.docRepo.ListByKB(ctx, kbID)
}

func archivePrefix(kbID string) string {
	return "kb/" + kbID
}
