package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

const DefaultTopK = 3

var ErrEmptyQuery = errors.New("search query is empty")

type Config struct {
	Path         string `split_words:"true" default:"data/knowledge.bleve"`
	ChunkSize    int    `split_words:"true" default:"1000"`
	ChunkOverlap int    `split_words:"true" default:"200"`
	TopK         int    `split_words:"true" default:"3"`
}

type Hit struct {
	ChunkID    string
	DocumentID string
	Content    string
	Score      float64
}

// Retriever returns the best matching chunks of one collection.
type Retriever interface {
	Retrieve(ctx context.Context, collection string, query string, k int) ([]Hit, error)
}

// Index is a bleve full-text index of document chunks. Collections share the index
// and are separated by a keyword field.
type Index struct {
	index   bleve.Index
	chunker Chunker
	path    string
}

type chunkDoc struct {
	Collection string    `json:"collection"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	CharCount  int       `json:"char_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Open opens the index at cfg.Path, creating it and its parent directory when
// missing. An empty path gives a memory-only index that is lost on Close.
func Open(cfg Config) (*Index, error) {
	chunker := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)

	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		idx, err := bleve.NewMemOnly(buildMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &Index{index: idx, chunker: chunker}, nil
	}

	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open index %s: %w", path, err)
		}
		return &Index{index: idx, chunker: chunker, path: path}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	idx, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", path, err)
	}
	return &Index{index: idx, chunker: chunker, path: path}, nil
}

// Persistent reports whether the index survives Close.
func (x *Index) Persistent() bool {
	return x.path != ""
}

func buildMapping() mapping.IndexMapping {
	keyword := bleve.NewKeywordFieldMapping()
	text := bleve.NewTextFieldMapping()
	text.Store = true

	stored := bleve.NewNumericFieldMapping()
	stored.Index = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("collection", keyword)
	doc.AddFieldMappingsAt("document_id", keyword)
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("chunk_index", stored)
	doc.AddFieldMappingsAt("token_count", stored)
	doc.AddFieldMappingsAt("char_count", stored)
	doc.AddFieldMappingsAt("created_at", bleve.NewDateTimeFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// AddDocument chunks text and indexes every chunk under collection.
func (x *Index) AddDocument(ctx context.Context, collection, documentID, text string) ([]Chunk, error) {
	chunks := x.chunker.Split(collection, documentID, text)
	if len(chunks) == 0 {
		return nil, nil
	}
	if err := x.Add(ctx, chunks); err != nil {
		return nil, err
	}
	logx.Info().
		Str("collection", collection).
		Str("document_id", documentID).
		Int("chunks", len(chunks)).
		Msg("document indexed")
	return chunks, nil
}

func (x *Index) Add(ctx context.Context, chunks []Chunk) error {
	batch := x.index.NewBatch()
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(c.ID, chunkDoc{
			Collection: c.Collection,
			DocumentID: c.DocumentID,
			ChunkIndex: c.Index,
			Content:    c.Content,
			TokenCount: c.TokenCount,
			CharCount:  c.CharCount,
			CreatedAt:  c.CreatedAt,
		}); err != nil {
			return fmt.Errorf("batch chunk %s: %w", c.ID, err)
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (x *Index) Retrieve(ctx context.Context, collection string, query string, k int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultTopK
	}

	match := bleve.NewMatchQuery(query)
	match.SetField("content")
	scope := bleve.NewTermQuery(collection)
	scope.SetField("collection")

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(match, scope), k, 0, false)
	req.Fields = []string{"content", "document_id"}

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		content, _ := h.Fields["content"].(string)
		docID, _ := h.Fields["document_id"].(string)
		hits = append(hits, Hit{
			ChunkID:    h.ID,
			DocumentID: docID,
			Content:    content,
			Score:      h.Score,
		})
	}
	return hits, nil
}

func (x *Index) Count() (uint64, error) {
	return x.index.DocCount()
}

func (x *Index) Close() error {
	return x.index.Close()
}
