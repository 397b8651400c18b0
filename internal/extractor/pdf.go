package extractor

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/statement-expenses/internal/logger"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

// readPDF extracts every page with the PDF library. When the library fails
// or yields unreadable text it falls back to pdftotext (poppler-utils) if
// installed.
func readPDF(ctx context.Context, name string, data []byte) ([]models.Page, error) {
	log := logger.FromContext(ctx)

	pages, libErr := readWithLibrary(ctx, data)
	if libErr == nil && IsReadable(pageTexts(pages)) {
		return pages, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if libErr != nil {
		log.Debug().Err(libErr).Str("source", name).Msg("pdf_library_failed")
	}

	popplerPages, err := readWithPdftotext(ctx, data)
	if err == nil && IsReadable(pageTexts(popplerPages)) {
		log.Debug().Str("source", name).Msg("pdf_read_with_pdftotext")
		return popplerPages, nil
	}

	if libErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDocumentUnreadable, name, libErr)
	}
	return nil, fmt.Errorf("%w: %s: no readable text, the file may be scanned or use custom font encodings", ErrDocumentUnreadable, name)
}

// readWithLibrary uses ledongthuc/pdf. The library panics on some malformed
// files, so panics are turned into errors.
func readWithLibrary(ctx context.Context, data []byte) (pages []models.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	n := r.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		page := models.Page{Number: i}
		if box := p.V.Key("MediaBox"); box.Len() == 4 {
			page.Width = box.Index(2).Float64() - box.Index(0).Float64()
			page.Height = box.Index(3).Float64() - box.Index(1).Float64()
		}
		for _, t := range p.Content().Text {
			page.Fragments = append(page.Fragments, models.Fragment{
				Text:     t.S,
				X:        t.X,
				Y:        t.Y,
				Width:    t.W,
				FontSize: t.FontSize,
				Font:     t.Font,
			})
		}

		page.Text = rowText(p)
		if strings.TrimSpace(page.Text) == "" {
			page.Text = fragmentText(page.Fragments)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// rowText joins the words of each row reported by GetTextByRow.
func rowText(p pdf.Page) string {
	rows, err := p.GetTextByRow()
	if err != nil {
		return ""
	}
	var lines []string
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// fragmentText rebuilds rows from fragment coordinates: fragments are
// bucketed by rounded Y, rows emitted top to bottom and fragments left to
// right, with a column gap wherever X jumps by more than 15 units.
func fragmentText(frags []models.Fragment) string {
	rows := make(map[int][]models.Fragment)
	for _, f := range frags {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		y := int(math.Round(f.Y))
		rows[y] = append(rows[y], f)
	}

	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	// PDF Y grows upwards
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	var lines []string
	for _, y := range ys {
		items := rows[y]
		sort.SliceStable(items, func(a, b int) bool { return items[a].X < items[b].X })

		var b strings.Builder
		for j, it := range items {
			if j > 0 && it.X-items[j-1].X > 15 {
				b.WriteString("  ")
			}
			b.WriteString(it.Text)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// readWithPdftotext runs pdftotext -layout over a temp copy of data. Pages
// come back separated by form feeds.
func readWithPdftotext(ctx context.Context, data []byte) ([]models.Page, error) {
	bin, err := exec.LookPath("pdftotext")
	if err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := exec.CommandContext(ctx, bin, "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}
	pages := textPages(strings.TrimRight(string(out), "\f\n"))
	if !hasText(pages) {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}
