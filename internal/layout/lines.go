// Package layout rebuilds visual lines from positioned text fragments and
// turns each line into a numeric feature vector.
package layout

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/insightdelivered/statement-expenses/internal/models"
)

// monoCharWidth is the synthetic glyph width used for pages that come
// without fragment positions.
const monoCharWidth = 5.0

// Token is a run of glyphs with no visible gap inside it.
type Token struct {
	Text  string
	X0    float64
	X1    float64
	Start int // byte offset of the token inside Line.Text
}

// Line is one visual row of a page.
type Line struct {
	Text   string
	Y      float64
	Tokens []Token
	Groups int // column groups separated by wide gaps
}

// X0 is the left edge of the line.
func (l Line) X0() float64 {
	if len(l.Tokens) == 0 {
		return 0
	}
	return l.Tokens[0].X0
}

// X1 is the right edge of the line.
func (l Line) X1() float64 {
	if len(l.Tokens) == 0 {
		return 0
	}
	return l.Tokens[len(l.Tokens)-1].X1
}

// XAt returns the left edge of the token holding the byte offset.
func (l Line) XAt(offset int) float64 {
	x := l.X0()
	for _, t := range l.Tokens {
		if t.Start > offset {
			break
		}
		x = t.X0
	}
	return x
}

// Lines rebuilds the visual lines of a page, top to bottom. Pages with no
// fragments are laid out from their text on a monospace grid.
func Lines(page models.Page) []Line {
	if len(page.Fragments) == 0 {
		return TextLines(page.Text)
	}
	return fragmentLines(page.Fragments)
}

// PageWidth returns the page width, or the widest line when the page does
// not carry one.
func PageWidth(page models.Page, lines []Line) float64 {
	if page.Width > 0 {
		return page.Width
	}
	width := 0.0
	for _, l := range lines {
		width = math.Max(width, l.X1())
	}
	if width == 0 {
		return 1
	}
	return width
}

// TextLines lays plain text out on a monospace grid. Runs of two or more
// spaces start a new column group.
func TextLines(text string) []Line {
	var lines []Line
	for i, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		line := Line{Y: float64(-i)}
		var parts []string
		col, offset, groups := 0, 0, 0
		gap := 2

		for _, word := range splitKeepGaps(raw) {
			if word.text == "" {
				gap = word.spaces
				col += word.spaces
				continue
			}
			if groups == 0 || gap >= 2 {
				groups++
			}
			if len(parts) > 0 {
				offset++
			}
			line.Tokens = append(line.Tokens, Token{
				Text:  word.text,
				X0:    float64(col) * monoCharWidth,
				X1:    float64(col+utf8.RuneCountInString(word.text)) * monoCharWidth,
				Start: offset,
			})
			parts = append(parts, word.text)
			offset += len(word.text)
			col += utf8.RuneCountInString(word.text)
			gap = 0
		}

		line.Text = strings.Join(parts, " ")
		line.Groups = groups
		lines = append(lines, line)
	}
	return lines
}

type textRun struct {
	text   string
	spaces int
}

// splitKeepGaps splits on spaces while remembering how wide each gap was.
func splitKeepGaps(s string) []textRun {
	var runs []textRun
	var b strings.Builder
	spaces := 0
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if b.Len() > 0 {
				runs = append(runs, textRun{text: b.String()})
				b.Reset()
			}
			if r == '\t' {
				spaces += 4
			} else {
				spaces++
			}
			continue
		}
		if spaces > 0 {
			runs = append(runs, textRun{spaces: spaces})
			spaces = 0
		}
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		runs = append(runs, textRun{text: b.String()})
	}
	return runs
}

// fragmentLines groups fragments by baseline, then merges neighbouring
// glyphs into tokens and tokens into column groups.
func fragmentLines(frags []models.Fragment) []Line {
	items := make([]models.Fragment, 0, len(frags))
	for _, f := range frags {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		items = append(items, f)
	}
	if len(items) == 0 {
		return nil
	}

	// PDF Y grows upwards; read top to bottom.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Y != items[j].Y {
			return items[i].Y > items[j].Y
		}
		return items[i].X < items[j].X
	})

	var rows [][]models.Fragment
	var rowY float64
	for _, f := range items {
		tol := math.Max(2, 0.5*f.FontSize)
		if len(rows) > 0 && math.Abs(f.Y-rowY) <= tol {
			rows[len(rows)-1] = append(rows[len(rows)-1], f)
			continue
		}
		rows = append(rows, []models.Fragment{f})
		rowY = f.Y
	}

	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		lines = append(lines, buildLine(row))
	}
	return lines
}

func buildLine(row []models.Fragment) Line {
	line := Line{Y: row[0].Y}

	var cur *Token
	var curText strings.Builder
	var parts []string
	offset := 0
	groups := 0
	prevX1 := math.Inf(-1)

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = curText.String()
		cur.Start = offset
		line.Tokens = append(line.Tokens, *cur)
		parts = append(parts, cur.Text)
		offset += len(cur.Text) + 1
		cur = nil
		curText.Reset()
	}

	for _, f := range row {
		text := strings.TrimSpace(f.Text)
		width := f.Width
		if width <= 0 {
			width = float64(utf8.RuneCountInString(text)) * math.Max(f.FontSize, 1) * 0.5
		}
		size := math.Max(f.FontSize, 1)
		gap := f.X - prevX1

		if gap > 2.5*size || groups == 0 {
			groups++
		}
		if cur == nil || gap > math.Max(1.0, 0.25*size) || strings.HasPrefix(f.Text, " ") {
			flush()
			cur = &Token{X0: f.X}
		}
		curText.WriteString(text)
		cur.X1 = f.X + width
		prevX1 = cur.X1
		if strings.HasSuffix(f.Text, " ") {
			flush()
		}
	}
	flush()

	line.Text = strings.Join(parts, " ")
	line.Groups = groups
	return line
}
