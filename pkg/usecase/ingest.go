package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"

	"github.com/talaria-bot/talaria/pkg/domain/model"
	"github.com/talaria-bot/talaria/pkg/domain/types"
	"github.com/talaria-bot/talaria/pkg/utils/errutil"
	"github.com/talaria-bot/talaria/pkg/utils/logging"
	"github.com/talaria-bot/talaria/pkg/utils/safe"
)

const (
	// DefaultIngestConcurrency bounds parallel embed and upsert work during
	// an ingestion run
	DefaultIngestConcurrency = 4

	// chunkSize and chunkOverlap control how file text is split before
	// embedding. Chunks overlap so sentences cut at a boundary stay
	// retrievable.
	chunkSize    = 1000
	chunkOverlap = 100

	gcsPrefix = "gs://"
)

// ingestSource is one file to index, with a deferred reader so workers pull
// content only when they get to it
type ingestSource struct {
	name string
	read func(ctx context.Context) ([]byte, error)
}

// Ingest indexes every supported file under the source into the document
// store. The source is either a local directory or a gs://bucket/prefix
// URL. Files are chunked, embedded and upserted with provenance metadata;
// chunk IDs derive from the file name and content hash so re-ingesting an
// updated source upserts instead of duplicating.
func (uc *UseCases) Ingest(ctx context.Context, source string) (*model.IngestReport, error) {
	if uc.responder == nil {
		return nil, goerr.New("ingestion requires the responder service")
	}
	if source == "" {
		return nil, goerr.New("ingestion source is required",
			goerr.T(types.ErrTagInvalidInput))
	}

	startTime := time.Now()
	report := &model.IngestReport{Source: source}

	sources, err := uc.collectSources(ctx, source, report)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultIngestConcurrency)

	for _, src := range sources {
		src := src
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			chunks, err := uc.ingestOne(gctx, src)
			if err != nil {
				// Skip the file, keep the run going
				errutil.Handle(gctx, err, "failed to ingest file")
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			report.Files++
			report.Chunks += chunks
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, goerr.Wrap(err, "ingestion interrupted", goerr.V("source", source))
	}

	report.Elapsed = time.Since(startTime)
	logging.From(ctx).Info("Ingestion completed",
		"source", source,
		"files", report.Files,
		"chunks", report.Chunks,
		"skipped", report.Skipped,
		"elapsed", report.Elapsed.String())

	return report, nil
}

// IngestText embeds one text snippet and upserts it as a single document.
// An empty id gets a generated one.
func (uc *UseCases) IngestText(ctx context.Context, id, text string, metadata map[string]string) (*model.Document, error) {
	if uc.responder == nil {
		return nil, goerr.New("ingestion requires the responder service")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.New("text is required", goerr.T(types.ErrTagInvalidInput))
	}

	docID := model.DocumentID(id)
	if id == "" {
		docID = model.NewDocumentID()
	}

	embedding, err := uc.responder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[model.MetaText] = text
	if meta[model.MetaUploadedAt] == "" {
		meta[model.MetaUploadedAt] = time.Now().UTC().Format(time.RFC3339)
	}

	doc := &model.Document{
		ID:        docID,
		Embedding: embedding,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.repo.Document().Upsert(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// ingestOne chunks, embeds and upserts a single file, returning the number
// of chunks written
func (uc *UseCases) ingestOne(ctx context.Context, src ingestSource) (int, error) {
	data, err := src.read(ctx)
	if err != nil {
		return 0, err
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, goerr.New("file has no text content", goerr.V("name", src.name))
	}

	sum := sha256.Sum256(data)
	fileID := fmt.Sprintf("%s_%s", stemOf(src.name), hex.EncodeToString(sum[:])[:8])
	uploadedAt := time.Now().UTC().Format(time.RFC3339)

	chunks := chunkText(text, chunkSize, chunkOverlap)
	for i, chunk := range chunks {
		embedding, err := uc.responder.Embed(ctx, chunk)
		if err != nil {
			return 0, goerr.Wrap(err, "failed to embed chunk",
				goerr.V("name", src.name), goerr.V("chunk", i))
		}

		doc := &model.Document{
			ID:        model.DocumentID(fmt.Sprintf("%s_%d", fileID, i)),
			Embedding: embedding,
			Metadata: map[string]string{
				model.MetaText:        chunk,
				model.MetaFilename:    src.name,
				model.MetaContentType: contentTypeOf(src.name),
				model.MetaUploadedAt:  uploadedAt,
			},
			CreatedAt: time.Now().UTC(),
		}
		if err := uc.repo.Document().Upsert(ctx, doc); err != nil {
			return 0, goerr.Wrap(err, "failed to upsert chunk", goerr.V("id", doc.ID))
		}
	}

	logging.From(ctx).Info("File indexed", "name", src.name, "chunks", len(chunks))
	return len(chunks), nil
}

func (uc *UseCases) collectSources(ctx context.Context, source string, report *model.IngestReport) ([]ingestSource, error) {
	if strings.HasPrefix(source, gcsPrefix) {
		return uc.collectBucket(ctx, source, report)
	}
	return collectDir(source, report)
}

func collectDir(dir string, report *model.IngestReport) ([]ingestSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot read ingestion source", goerr.V("dir", dir))
	}
	if !info.IsDir() {
		return nil, goerr.New("ingestion source is not a directory",
			goerr.T(types.ErrTagInvalidInput), goerr.V("dir", dir))
	}

	var sources []ingestSource
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !supportedFile(d.Name()) {
			report.Skipped++
			return nil
		}

		name, err := filepath.Rel(dir, p)
		if err != nil {
			name = d.Name()
		}
		name = filepath.ToSlash(name)

		filePath := p
		sources = append(sources, ingestSource{
			name: name,
			read: func(ctx context.Context) ([]byte, error) {
				data, err := os.ReadFile(filePath) // #nosec G304
				if err != nil {
					return nil, goerr.Wrap(err, "failed to read file",
						goerr.V("path", filePath))
				}
				return data, nil
			},
		})
		return nil
	})
	if walkErr != nil {
		return nil, goerr.Wrap(walkErr, "failed to walk ingestion source",
			goerr.V("dir", dir))
	}

	return sources, nil
}

func (uc *UseCases) collectBucket(ctx context.Context, source string, report *model.IngestReport) ([]ingestSource, error) {
	bucketName, prefix, err := splitBucketURL(source)
	if err != nil {
		return nil, err
	}

	client := uc.gcs
	if client == nil {
		client, err = storage.NewClient(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage client",
				goerr.T(types.ErrTagBackend))
		}
	}

	bucket := client.Bucket(bucketName)
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var sources []ingestSource
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list bucket objects",
				goerr.T(types.ErrTagBackend), goerr.V("bucket", bucketName))
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		if !supportedFile(attrs.Name) {
			report.Skipped++
			continue
		}

		name := attrs.Name
		obj := bucket.Object(name)
		sources = append(sources, ingestSource{
			name: name,
			read: func(ctx context.Context) ([]byte, error) {
				r, err := obj.NewReader(ctx)
				if err != nil {
					return nil, goerr.Wrap(err, "failed to open object",
						goerr.V("object", name))
				}
				defer safe.Close(ctx, r)

				data, err := io.ReadAll(r)
				if err != nil {
					return nil, goerr.Wrap(err, "failed to read object",
						goerr.V("object", name))
				}
				return data, nil
			},
		})
	}

	return sources, nil
}

// splitBucketURL splits "gs://bucket/prefix" into bucket and prefix
func splitBucketURL(source string) (string, string, error) {
	rest := strings.TrimPrefix(source, gcsPrefix)
	bucketName, prefix, _ := strings.Cut(rest, "/")
	if bucketName == "" {
		return "", "", goerr.New("bucket name is required in source URL",
			goerr.T(types.ErrTagInvalidInput), goerr.V("source", source))
	}
	return bucketName, prefix, nil
}

func supportedFile(name string) bool {
	if strings.HasPrefix(path.Base(filepath.ToSlash(name)), ".") {
		return false
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".text", ".md", ".markdown":
		return true
	default:
		return false
	}
}

func contentTypeOf(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return "text/markdown"
	default:
		return "text/plain"
	}
}

// stemOf returns the file name without directories or extension
func stemOf(name string) string {
	base := path.Base(filepath.ToSlash(name))
	return strings.TrimSuffix(base, path.Ext(base))
}

// chunkText splits text into overlapping rune windows, preferring to break
// at a sentence boundary past the midpoint of the window
func chunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		last := end >= len(runes)
		if last {
			end = len(runes)
		} else if idx := lastRuneIndex(runes, '.', start, end); idx > start+size/2 {
			end = idx + 1
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if last {
			break
		}

		start = end - overlap
	}

	return chunks
}

// lastRuneIndex returns the highest index of r in runes[from:to), or -1
func lastRuneIndex(runes []rune, r rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
