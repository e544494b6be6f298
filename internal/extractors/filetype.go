package extractors

import (
	"regexp"
	"strings"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// Fixed vocabulary of file-type keywords. Exact whole-word matches only;
// plural or inflected forms do not count.
var fileTypeVocabulary = []string{
	"pdf", "csv", "xlsx", "docx", "pptx",
	"image", "photo", "screenshot", "scan",
	"invoice", "receipt", "contract", "statement",
}

var fileTypeRe = regexp.MustCompile(`(?i)\b(?:` + strings.Join(fileTypeVocabulary, "|") + `)\b`)

// FileTypeExtractor detects file-type keywords. The hint only ever narrows
// a filter; the keyword itself stays in the cleaned text, so this extractor
// consumes no spans.
type FileTypeExtractor struct{}

// NewFileTypeExtractor creates a file-type hint extractor.
func NewFileTypeExtractor() *FileTypeExtractor {
	return &FileTypeExtractor{}
}

func (e *FileTypeExtractor) Name() string { return "filetype" }
func (e *FileTypeExtractor) Order() int   { return 40 }

// Extract records lowercase hints for every vocabulary keyword present.
func (e *FileTypeExtractor) Extract(raw string, taken []Span, signals *domain.QuerySignals) []Span {
	for _, loc := range fileTypeRe.FindAllStringIndex(raw, -1) {
		span := Span{loc[0], loc[1]}
		if overlapsAny(span, taken) {
			continue
		}
		signals.FileTypeHints = append(signals.FileTypeHints, strings.ToLower(raw[loc[0]:loc[1]]))
	}
	return nil
}
