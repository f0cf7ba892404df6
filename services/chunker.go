package services

import (
	"regexp"
	"strings"

	"semantic-qa-platform/models"
)

// Chunker splits per-page extracted text into overlapping character windows.
// Window size and overlap are fixed at construction; chunking itself is a
// pure function over its inputs and never fails.
type Chunker struct {
	chunkSize      int
	overlap        int
	minChunkSize   int
	paragraphRegex *regexp.Regexp
}

func NewChunker(chunkSize, overlap, minChunkSize int) *Chunker {
	return &Chunker{
		chunkSize:      chunkSize,
		overlap:        overlap,
		minChunkSize:   minChunkSize,
		paragraphRegex: regexp.MustCompile(`\n\n+`),
	}
}

// Chunk produces the ordered chunk sequence for one document. Pages with no
// text contribute nothing and do not advance the sequence index; indexes are
// 0-based, global across pages, and strictly increasing by one.
func (c *Chunker) Chunk(pages []models.Page) []models.Chunk {
	var chunks []models.Chunk
	seq := 0
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		for _, window := range c.splitText(text) {
			chunks = append(chunks, models.Chunk{
				Text:          window,
				PageNumber:    page.Number,
				SequenceIndex: seq,
			})
			seq++
		}
	}
	return chunks
}

// splitText accumulates paragraphs into windows up to the target size,
// re-including the trailing overlap of the previous window. The size bound is
// soft: a window may slightly exceed it rather than break mid-word.
func (c *Chunker) splitText(text string) []string {
	paragraphs := c.paragraphRegex.Split(text, -1)

	var windows []string
	current := new(strings.Builder)
	fresh := false // current holds more than an overlap seed

	emit := func() {
		if w := strings.TrimSpace(current.String()); w != "" {
			windows = append(windows, w)
		}
		current.Reset()
		fresh = false
	}

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		// A single paragraph beyond the target size is window-stepped on its own.
		if len(paragraph) > c.chunkSize {
			if fresh {
				emit()
			} else {
				current.Reset()
			}
			windows = append(windows, c.splitLongRun(paragraph)...)
			continue
		}

		if fresh && current.Len()+len(paragraph) > c.chunkSize && current.Len() >= c.minChunkSize {
			seed := ""
			if c.overlap > 0 {
				seed = overlapTail(current.String(), c.overlap)
			}
			emit()
			current.WriteString(seed)
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
		fresh = true
	}
	if fresh {
		emit()
	}
	return windows
}

// splitLongRun steps fixed-size windows through a paragraph that cannot be
// kept whole, preferring whitespace boundaries and re-including the overlap.
func (c *Chunker) splitLongRun(text string) []string {
	var windows []string
	start := 0
	for start < len(text) {
		end := start + c.chunkSize
		if end >= len(text) {
			if w := strings.TrimSpace(text[start:]); w != "" {
				windows = append(windows, w)
			}
			break
		}

		cut := end
		if idx := strings.LastIndexAny(text[start:end], " \t\n"); idx > c.chunkSize/2 {
			cut = start + idx
		}
		if w := strings.TrimSpace(text[start:cut]); w != "" {
			windows = append(windows, w)
		}

		next := cut - c.overlap
		if next <= start {
			next = cut // overlap larger than progress would stall
		}
		next = snapToWordStart(text, next)
		if next > cut {
			next = cut // never skip text between windows
		}
		start = next
	}
	return windows
}

// overlapTail returns roughly the last overlap characters of text, snapped
// forward to a word start.
func overlapTail(text string, overlap int) string {
	text = strings.TrimSpace(text)
	if len(text) <= overlap {
		return text
	}
	tail := text[len(text)-overlap:]
	if idx := strings.IndexAny(tail, " \t\n"); idx >= 0 {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}

// snapToWordStart advances pos past a partially covered word.
func snapToWordStart(text string, pos int) int {
	if pos <= 0 || pos >= len(text) {
		return pos
	}
	if pos > 0 && isSpaceByte(text[pos-1]) {
		return pos
	}
	if idx := strings.IndexAny(text[pos:], " \t\n"); idx >= 0 {
		return pos + idx + 1
	}
	return pos
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
