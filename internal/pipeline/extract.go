package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdfworkflow/internal/logging"
	"pdfworkflow/pkg/models"
)

// Info dictionary entries worth surfacing as document metadata.
var infoKeys = []string{"Author", "Title", "Subject", "Creator", "Producer", "Keywords"}

// Extractor turns a raw PDF byte stream into text and document metadata.
// It has no side effects.
type Extractor struct {
	logger *logging.Logger
}

// NewExtractor creates a new Extractor.
func NewExtractor(logger *logging.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract validates the document bytes as a PDF and pulls out the full text,
// page count and Info-dictionary metadata. Unparseable, encrypted or
// zero-page documents surface as extraction errors.
func (e *Extractor) Extract(doc models.Document) (result *models.ExtractionResult, err error) {
	// The text parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = ExtractionError("document is not a parseable PDF", fmt.Errorf("parser panic: %v", r))
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(doc.Content), conf); err != nil {
		return nil, ExtractionError("document is not a parseable PDF", err)
	}

	pageCount, err := api.PageCount(bytes.NewReader(doc.Content), conf)
	if err != nil {
		return nil, ExtractionError("failed to count pages", err)
	}
	if pageCount == 0 {
		return nil, ExtractionError("document has zero pages", nil)
	}

	reader, err := ledongthuc.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return nil, ExtractionError("failed to open PDF for text extraction", err)
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// A single undecodable page does not fail the run.
			e.logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	return &models.ExtractionResult{
		FullText:  text.String(),
		PageCount: pageCount,
		Metadata:  extractInfoMetadata(reader),
	}, nil
}

func extractInfoMetadata(reader *ledongthuc.Reader) map[string]string {
	metadata := map[string]string{"source": "pdf_upload"}
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return metadata
	}
	for _, key := range infoKeys {
		v := info.Key(key)
		if v.Kind() == ledongthuc.String {
			if s := v.RawString(); s != "" {
				metadata[strings.ToLower(key)] = s
			}
		}
	}
	return metadata
}
