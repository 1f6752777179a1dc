package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ragchat/internal/models"
	"ragchat/internal/types"
	"ragchat/pkg/splitter"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyExtraction   = errors.New("no text could be extracted")
	ErrAmbiguousJSON     = errors.New("ambiguous json shape: specify which field holds the list")
	ErrOCRUnavailable    = errors.New("ocr tools not available")
)

type LoaderConfig struct {
	Splitter types.Splitter
	Pages    PageExtractor
	OCR      OCR
	AllowOCR bool
	JSONKey  string
}

// Loader normalizes a JSON or PDF file into ordered text units and derives
// the namespace every unit will be stored under.
type Loader struct {
	config LoaderConfig
}

func NewWithConfig(config LoaderConfig) *Loader {
	if config.Splitter == nil {
		config.Splitter = splitter.NewWithConfig(splitter.SplitterConfig{})
	}
	if config.Pages == nil {
		config.Pages = PDFPages{}
	}
	if config.OCR == nil {
		config.OCR = TesseractOCR{}
	}

	return &Loader{config: config}
}

// Load reads the file, hashes its bytes into a namespace and extracts text
// units according to the file extension. Identical file content always maps
// to the same namespace, which is what makes re-ingestion a cheap no-op.
func (l *Loader) Load(path string) (*models.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	sum := sha256.Sum256(raw)
	namespace := "docs:" + hex.EncodeToString(sum[:])

	var units []string
	var kind models.SourceKind

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		kind = models.SourceJSON
		units, err = l.jsonUnits(raw)
	case ".pdf":
		kind = models.SourcePDF
		units, err = l.pdfUnits(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyExtraction, path)
	}

	return &models.Document{
		Namespace: namespace,
		Kind:      kind,
		Units:     units,
	}, nil
}

func (l *Loader) jsonUnits(raw []byte) ([]string, error) {
	var top any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	switch v := top.(type) {
	case []any:
		return textUnits(v)
	case map[string]any:
		if l.config.JSONKey != "" {
			list, ok := v[l.config.JSONKey].([]any)
			if !ok {
				return nil, fmt.Errorf("json field %q is not a list", l.config.JSONKey)
			}
			return textUnits(list)
		}

		var lists [][]any
		for _, val := range v {
			if list, ok := val.([]any); ok {
				lists = append(lists, list)
			}
		}
		if len(lists) != 1 {
			return nil, ErrAmbiguousJSON
		}
		return textUnits(lists[0])
	}

	return nil, errors.New("unsupported json structure: expected list or object")
}

// textUnits resolves every entry to plain text: strings pass through,
// anything structured is serialized. json.Marshal writes object keys in
// sorted order, so the same entry always yields the same text.
func textUnits(entries []any) ([]string, error) {
	var units []string
	for _, entry := range entries {
		text, ok := entry.(string)
		if !ok {
			encoded, err := json.Marshal(entry)
			if err != nil {
				return nil, fmt.Errorf("serialize entry: %w", err)
			}
			text = string(encoded)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		units = append(units, text)
	}
	return units, nil
}

func (l *Loader) pdfUnits(path string) ([]string, error) {
	pages, err := l.config.Pages.ExtractPages(path)
	if err != nil {
		return nil, fmt.Errorf("extract pdf pages: %w", err)
	}

	var kept []string
	for i, page := range pages {
		if strings.TrimSpace(page) == "" && l.config.AllowOCR {
			recovered, err := l.config.OCR.Page(path, i+1)
			if err != nil {
				// OCR trouble costs us the page, not the document.
				continue
			}
			page = recovered
		}
		if strings.TrimSpace(page) != "" {
			kept = append(kept, page)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	// Page boundaries become paragraph breaks for the splitter.
	full := strings.Join(kept, "\n\n")

	chunks := l.config.Splitter.SplitBySection(full)
	if len(chunks) <= 1 {
		chunks = l.config.Splitter.SplitText(full)
	}
	return chunks, nil
}
