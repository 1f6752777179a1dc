package splitter

import (
	"regexp"
	"strings"
)

type SplitterConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

// Splitter turns raw extracted text into bounded chunks while keeping
// paragraph and section boundaries intact.
type Splitter struct {
	config SplitterConfig
}

var (
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	newlineRun   = regexp.MustCompile(`\n+`)
	spaceRun     = regexp.MustCompile(`[ \t]+`)
	gluedPeriod  = regexp.MustCompile(`\.([A-Z])`)
	twoNewlines  = regexp.MustCompile(`\n{2,}`)

	// Section boundaries: ALL CAPS lines, numbered headers, Title Case headers.
	sectionHeader = regexp.MustCompile(
		`\n[A-Z][A-Z ]{2,}[A-Z]\n` +
			`|\n\d+\.[ \t]+[A-Z][^.\n]+\n` +
			`|\n[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*:[ \t]*\n`)
)

func NewWithConfig(config SplitterConfig) *Splitter {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.Separator == "" {
		config.Separator = "\n\n"
	}

	return &Splitter{config: config}
}

// Clean normalizes whitespace and repairs common OCR artifacts: line-wrap
// newlines become spaces, paragraph breaks collapse to exactly one blank
// line, and sentences glued together by a missing space are separated.
func (s *Splitter) Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	// Collapse 3+ newlines to a paragraph break before deciding which
	// single newlines are mere line wraps.
	text = manyNewlines.ReplaceAllString(text, "\n\n")

	text = newlineRun.ReplaceAllStringFunc(text, func(run string) string {
		if len(run) == 1 {
			return " "
		}
		return run
	})

	text = spaceRun.ReplaceAllString(text, " ")
	text = gluedPeriod.ReplaceAllString(text, ". $1")
	text = twoNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// SplitText packs cleaned paragraphs greedily into chunks of at most
// ChunkSize characters, seeding each new chunk with the trailing paragraphs
// of the previous one that fit within ChunkOverlap. A single paragraph
// longer than ChunkSize is emitted whole; the limit is soft.
func (s *Splitter) SplitText(text string) []string {
	text = s.Clean(text)

	var segments []string
	for _, seg := range strings.Split(text, s.config.Separator) {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}

	var chunks []string
	var current []string
	currentSize := 0

	for _, segment := range segments {
		if currentSize+len(segment) > s.config.ChunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, s.config.Separator))

			// Carry over as many trailing segments as fit in the
			// overlap budget, in original order.
			var overlap []string
			overlapSize := 0
			for i := len(current) - 1; i >= 0; i-- {
				if overlapSize+len(current[i]) > s.config.ChunkOverlap {
					break
				}
				overlap = append([]string{current[i]}, overlap...)
				overlapSize += len(current[i])
			}
			current = overlap
			currentSize = overlapSize
		}

		current = append(current, segment)
		currentSize += len(segment)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, s.config.Separator))
	}

	return chunks
}

// SplitBySection partitions cleaned text at recognized section headers and
// pairs each header with the content that follows it. Callers should fall
// back to SplitText when fewer than two chunks come back.
func (s *Splitter) SplitBySection(text string) []string {
	text = s.Clean(text)
	if text == "" {
		return nil
	}

	// Headers are matched against surrounding newlines, so make sure the
	// edges of the text can match too.
	padded := "\n" + text + "\n"

	locs := sectionHeader.FindAllStringIndex(padded, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var chunks []string
	appendChunk := func(header, content string) {
		header = strings.TrimSpace(header)
		content = strings.TrimSpace(content)
		joined := strings.TrimSpace(header + "\n\n" + content)
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	// Anything before the first header is kept as its own chunk.
	appendChunk("", padded[:locs[0][0]])

	for i, loc := range locs {
		header := padded[loc[0]:loc[1]]
		end := len(padded)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		appendChunk(header, padded[loc[1]:end])
	}

	return chunks
}
