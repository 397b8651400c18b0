// Package extractor turns statement files into page text plus, for PDFs,
// positioned text fragments.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/insightdelivered/statement-expenses/internal/logger"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

// ErrDocumentUnreadable is returned when a document yields no usable text.
var ErrDocumentUnreadable = errors.New("document unreadable")

// Load reads the statement at path. The returned document has no ID; the
// caller assigns one.
func Load(ctx context.Context, path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentUnreadable, err)
	}
	return Parse(ctx, path, data)
}

// Parse decodes data according to the extension of name: ".pdf" through the
// PDF reader, anything else as plain text with pages split on form feeds.
func Parse(ctx context.Context, name string, data []byte) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		pages []models.Page
		err   error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		pages, err = readPDF(ctx, name, data)
	default:
		pages = textPages(string(data))
	}
	if err != nil {
		return nil, err
	}

	if !hasText(pages) {
		return nil, fmt.Errorf("%w: %s has no text", ErrDocumentUnreadable, name)
	}
	if !IsReadable(pageTexts(pages)) {
		log := logger.FromContext(ctx)
		log.Warn().Str("source", name).Msg("low_quality_text")
	}
	return &models.Document{Source: name, Pages: pages}, nil
}

// FromText builds a document from pasted text.
func FromText(id, source, text string) (*models.Document, error) {
	pages := textPages(text)
	if !hasText(pages) {
		return nil, fmt.Errorf("%w: %s has no text", ErrDocumentUnreadable, source)
	}
	return &models.Document{ID: id, Source: source, Pages: pages}, nil
}

func textPages(text string) []models.Page {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var pages []models.Page
	for i, p := range strings.Split(text, "\f") {
		pages = append(pages, models.Page{Number: i + 1, Text: p})
	}
	return pages
}

func pageTexts(pages []models.Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Text
	}
	return out
}

func hasText(pages []models.Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}
