package knowledge

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Collection string    `json:"collection"`
	Index      int       `json:"chunk_index"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	CharCount  int       `json:"char_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunker splits documents into overlapping windows of at most Size runes.
type Chunker struct {
	Size    int
	Overlap int
	now     func() time.Time
}

func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return Chunker{Size: size, Overlap: overlap, now: time.Now}
}

func (c Chunker) Split(collection, documentID, text string) []Chunk {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if c.Size <= 0 {
		c = NewChunker(c.Size, c.Overlap)
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	createdAt := now().UTC()

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + c.Size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, Chunk{
				ID:         uuid.NewString(),
				DocumentID: documentID,
				Collection: collection,
				Index:      len(chunks),
				Content:    content,
				TokenCount: len(strings.Fields(content)),
				CharCount:  len([]rune(content)),
				CreatedAt:  createdAt,
			})
		}

		if end == len(runes) {
			break
		}
		next := end - c.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint moves end back to the last whitespace in the second half of the window.
func breakPoint(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
