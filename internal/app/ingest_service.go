package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"notesage/internal/ai"
	"notesage/internal/apperr"
	"notesage/internal/model"
	"notesage/internal/pkg/extract"
	"notesage/internal/pkg/splitter"
	"notesage/internal/platform/rabbitmq"
)

// ChunkWriter is the slice of the vector store the ingestion pipeline
// writes through.
type ChunkWriter interface {
	Add(ctx context.Context, chunk model.Chunk) (int64, error)
	SwapCurrent(ctx context.Context, ownerID string, batchID uuid.UUID) (uuid.UUID, bool, error)
}

// EmbeddingClient converts one text into a fixed-length vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
}

// BatchRetirePublisher hands a replaced generation to the background
// sweeper.
type BatchRetirePublisher interface {
	Publish(ctx context.Context, msg rabbitmq.RetireBatchMessage) error
}

// HistoryInvalidator drops a user's cached chat history.
type HistoryInvalidator interface {
	Invalidate(ctx context.Context, ownerID string) error
}

// ExtractFunc matches extract.Extract, injectable for tests.
type ExtractFunc func(path, fileType string) (*extract.Result, error)

type IngestConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	MaxChunksPerFile int
	EmbedWorkers     int
	TempDir          string
}

// IngestService runs the upload pipeline: download, extract, split,
// embed, store. All chunks of one request share a batch id; the batch
// only becomes visible to retrieval when every file has been processed
// and the generation pointer swaps.
type IngestService struct {
	store      ChunkWriter
	embedder   EmbeddingClient
	embCfg     ai.EmbeddingConfig
	publisher  BatchRetirePublisher
	history    HistoryInvalidator
	httpClient *http.Client
	split      splitter.Splitter
	extractFn  ExtractFunc
	config     IngestConfig
}

func NewIngestService(
	store ChunkWriter,
	embedder EmbeddingClient,
	embCfg ai.EmbeddingConfig,
	publisher BatchRetirePublisher,
	history HistoryInvalidator,
	config IngestConfig,
) *IngestService {
	if config.MaxChunksPerFile <= 0 {
		config.MaxChunksPerFile = 200
	}
	if config.EmbedWorkers <= 0 {
		config.EmbedWorkers = 1
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	return &IngestService{
		store:      store,
		embedder:   embedder,
		embCfg:     embCfg,
		publisher:  publisher,
		history:    history,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		split:      splitter.New(config.ChunkSize, config.ChunkOverlap),
		extractFn:  extract.Extract,
		config:     config,
	}
}

// IngestBatch processes every file URL in order. The first failure
// aborts the whole request; chunks already written stay in the
// never-activated batch and are swept once a later batch retires it.
// On success the batch becomes the owner's live generation.
func (s *IngestService) IngestBatch(ctx context.Context, ownerID string, fileURLs []string) ([]model.IngestionResult, error) {
	if len(fileURLs) == 0 {
		return nil, apperr.New(apperr.KindBadRequest, "no files provided")
	}

	batchID := uuid.New()
	results := make([]model.IngestionResult, 0, len(fileURLs))

	for _, fileURL := range fileURLs {
		result, err := s.ingestFile(ctx, ownerID, batchID, fileURL)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	previous, hadPrevious, err := s.store.SwapCurrent(ctx, ownerID, batchID)
	if err != nil {
		return nil, err
	}
	if hadPrevious && s.publisher != nil {
		if err := s.publisher.Publish(ctx, rabbitmq.RetireBatchMessage{
			OwnerID: ownerID,
			BatchID: previous,
		}); err != nil {
			// The new generation is already live; a missed retire message
			// leaves orphaned rows until the next cleanup, not wrong answers.
			log.Printf("ingest: publish retire for batch %s failed: %v", previous, err)
		}
	}
	if s.history != nil {
		if err := s.history.Invalidate(ctx, ownerID); err != nil {
			log.Printf("ingest: invalidate history for %s failed: %v", ownerID, err)
		}
	}

	return results, nil
}

func (s *IngestService) ingestFile(ctx context.Context, ownerID string, batchID uuid.UUID, fileURL string) (_ *model.IngestionResult, err error) {
	fileName := fileNameFromURL(fileURL)
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")

	// Reject unsupported types before any network I/O.
	if !extract.Supported(fileType) {
		return nil, apperr.New(
			apperr.KindUnsupportedFormat,
			fmt.Sprintf("currently supporting only %s files for faster processing", strings.Join(extract.SupportedTypes, ", ")),
		).WithHint("please convert other formats to PDF")
	}

	tempPath, err := s.download(ctx, fileURL, fileName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if removeErr := os.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
			log.Printf("ingest: remove temp file %s failed: %v", tempPath, removeErr)
		}
	}()

	extracted, err := s.extractFn(tempPath, fileType)
	if err != nil {
		return nil, err
	}

	chunks := s.split.Split(extracted.Text)
	if len(chunks) == 0 {
		return nil, apperr.New(apperr.KindNoContent, "no content could be extracted from the document")
	}
	if len(chunks) > s.config.MaxChunksPerFile {
		return nil, apperr.New(
			apperr.KindProcessingLimit,
			fmt.Sprintf("%s splits into %d chunks, more than the %d allowed per file", fileName, len(chunks), s.config.MaxChunksPerFile),
		).WithHint("try uploading fewer or smaller files")
	}

	embeddings, err := s.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	// Store writes run strictly in chunk order so chunkNumber always
	// matches document order regardless of embed concurrency.
	total := len(chunks)
	for i, content := range chunks {
		metadata := map[string]any{
			model.MetaFileName:    fileName,
			model.MetaChunkNumber: i + 1,
			model.MetaTotalChunks: total,
			model.MetaTimestamp:   time.Now().UTC().Format(time.RFC3339),
		}
		for k, v := range extracted.Metadata {
			metadata[k] = v
		}

		if _, err := s.store.Add(ctx, model.Chunk{
			OwnerID:   ownerID,
			BatchID:   batchID,
			Content:   content,
			Embedding: embeddings[i],
			Metadata:  metadata,
		}); err != nil {
			return nil, err
		}
	}

	return &model.IngestionResult{
		Success: true,
		Message: fmt.Sprintf("Processed %d chunks from %s", total, fileName),
		Chunks:  total,
		Status:  "complete",
	}, nil
}

// embedAll embeds every chunk with at most EmbedWorkers concurrent
// calls, writing results into an index-keyed slice so ordering never
// depends on completion order. One worker reproduces fully sequential
// behavior.
func (s *IngestService) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	embeddings := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.EmbedWorkers)
	for i, content := range chunks {
		i, content := i, content
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, s.embCfg, content)
			if err != nil {
				return err
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (s *IngestService) download(ctx context.Context, fileURL, fileName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.KindDownload, "invalid file URL", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindDownload, "failed to fetch file", err).AsTransient()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.New(
			apperr.KindDownload,
			fmt.Sprintf("failed to fetch file: %s", resp.Status),
		)
	}

	// Timestamped name keeps concurrent uploads of the same file from
	// colliding in the shared temp directory.
	tempPath := filepath.Join(
		s.config.TempDir,
		fmt.Sprintf("ingest_%d_%s", time.Now().UnixNano(), sanitizeFileName(fileName)),
	)

	out, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create temp file failed: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tempPath)
		return "", apperr.Wrap(apperr.KindDownload, "failed to save temp file", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("close temp file failed: %w", err)
	}
	return tempPath, nil
}

// fileNameFromURL takes the last path segment and strips any query
// string the signed URL carries.
func fileNameFromURL(fileURL string) string {
	name := fileURL
	if parsed, err := url.Parse(fileURL); err == nil && parsed.Path != "" {
		name = parsed.Path
	}
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.Index(name, "?"); idx >= 0 {
		name = name[:idx]
	}
	return name
}

var unsafeFileNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func sanitizeFileName(name string) string {
	return unsafeFileNameRe.ReplaceAllString(name, "_")
}
