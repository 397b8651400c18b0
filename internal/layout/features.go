package layout

import (
	"unicode"
	"unicode/utf8"

	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// Feature indexes. Every vector has NumFeatures dimensions whatever the line
// contains; positions of absent tokens hold Missing.
const (
	FeatHasAmount = iota
	FeatAmountPos
	FeatAmountCount
	FeatHasDate
	FeatDatePos
	FeatDateCount
	FeatLength
	FeatLeftOffset
	FeatDensity
	FeatTokenGroups
	FeatAlphaRatio
	FeatRightmostIsAmount
	NumFeatures
)

// Missing marks the position of a token the line does not have.
const Missing = -1.0

// Vector is the feature vector of one line.
type Vector [NumFeatures]float64

// Slice returns the vector as a slice for the clusterer.
func (v Vector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// Features computes the feature vector of a line on a page of the given width.
func Features(line Line, pageWidth float64) Vector {
	var v Vector
	if pageWidth <= 0 {
		pageWidth = 1
	}

	money := tokens.Money.FindAllStringIndex(line.Text, -1)
	dates := tokens.Date.FindAllStringIndex(line.Text, -1)

	v[FeatAmountPos] = Missing
	v[FeatDatePos] = Missing

	if len(money) > 0 {
		last := money[len(money)-1]
		v[FeatHasAmount] = 1
		v[FeatAmountPos] = line.XAt(last[0]) / pageWidth
		v[FeatAmountCount] = float64(len(money))
		if last[1] == len(line.Text) {
			v[FeatRightmostIsAmount] = 1
		}
	}
	if len(dates) > 0 {
		v[FeatHasDate] = 1
		v[FeatDatePos] = line.XAt(dates[0][0]) / pageWidth
		v[FeatDateCount] = float64(len(dates))
	}

	chars := utf8.RuneCountInString(line.Text)
	v[FeatLength] = float64(chars)
	v[FeatLeftOffset] = line.X0() / pageWidth
	if span := line.X1() - line.X0(); span > 0 {
		v[FeatDensity] = float64(chars) / span
	}
	v[FeatTokenGroups] = float64(line.Groups)

	if chars > 0 {
		letters := 0
		for _, r := range line.Text {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		v[FeatAlphaRatio] = float64(letters) / float64(chars)
	}

	return v
}

// PageFeatures computes one vector per line.
func PageFeatures(lines []Line, pageWidth float64) []Vector {
	out := make([]Vector, len(lines))
	for i, l := range lines {
		out[i] = Features(l, pageWidth)
	}
	return out
}
