package models

import "strings"

// Fragment is a piece of text placed on a page, as reported by the PDF library.
// Y grows upwards (PDF user space).
type Fragment struct {
	Text     string
	X        float64
	Y        float64
	Width    float64
	FontSize float64
	Font     string
}

// Page is the text of one page plus optional positioned fragments.
type Page struct {
	Number    int
	Width     float64
	Height    float64
	Text      string
	Fragments []Fragment
}

// Document is one input statement.
type Document struct {
	ID     string
	Source string
	Pages  []Page
}

// Text returns the text of every page joined by newlines.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n")
}

// NewTextDocument builds a document from plain page strings.
func NewTextDocument(id, source string, pages ...string) *Document {
	doc := &Document{ID: id, Source: source}
	for i, p := range pages {
		doc.Pages = append(doc.Pages, Page{Number: i + 1, Text: p})
	}
	return doc
}
