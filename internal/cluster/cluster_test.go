package cluster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-expenses/internal/layout"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

func TestStandardize(t *testing.T) {
	out := Standardize([][]float64{{1, 5}, {3, 5}})
	require.Len(t, out, 2)
	assert.InDelta(t, -1, out[0][0], 1e-9)
	assert.InDelta(t, 1, out[1][0], 1e-9)
	// constant dimension collapses to zero
	assert.Equal(t, 0.0, out[0][1])
	assert.Equal(t, 0.0, out[1][1])

	assert.Nil(t, Standardize(nil))
}

func TestKMeans_SeparatesGroups(t *testing.T) {
	points := [][]float64{
		{0, 0}, {0.1, 0}, {10, 10}, {0, 0.2}, {10.2, 9.9}, {9.8, 10.1},
	}
	labels := KMeans(points, 2, 20)
	require.Len(t, labels, len(points))

	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[3])
	assert.Equal(t, labels[2], labels[4])
	assert.Equal(t, labels[2], labels[5])
	assert.NotEqual(t, labels[0], labels[2])
}

func TestKMeans_Deterministic(t *testing.T) {
	points := [][]float64{{1, 2}, {3, 1}, {8, 8}, {2, 2}, {9, 7}, {5, 5}}
	first := KMeans(points, 3, 50)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, KMeans(points, 3, 50))
	}
}

func TestKMeans_ClampsK(t *testing.T) {
	labels := KMeans([][]float64{{1}, {2}}, 5, 10)
	assert.Len(t, labels, 2)
	assert.Nil(t, KMeans(nil, 3, 10))

	same := KMeans([][]float64{{1}, {1}, {1}}, 3, 10)
	assert.Equal(t, []int{0, 0, 0}, same)
}

func vector(amount, date bool, length float64) layout.Vector {
	var v layout.Vector
	v[layout.FeatAmountPos] = layout.Missing
	v[layout.FeatDatePos] = layout.Missing
	if amount {
		v[layout.FeatHasAmount] = 1
		v[layout.FeatAmountPos] = 0.9
	}
	if date {
		v[layout.FeatHasDate] = 1
		v[layout.FeatDatePos] = 0.05
	}
	v[layout.FeatLength] = length
	return v
}

func TestEvaluateAndBest(t *testing.T) {
	cfg := DefaultConfig()
	vectors := []layout.Vector{
		vector(false, false, 20), // header
		vector(true, true, 40),
		vector(true, true, 35),
		vector(true, false, 25), // summary total
		vector(true, true, 38),
	}
	labels := []int{0, 1, 1, 2, 1}

	clusters := Evaluate(vectors, labels, cfg)
	require.Len(t, clusters, 3)

	best, ok := Best(clusters, cfg)
	require.True(t, ok)
	assert.Equal(t, 1, best.Label)
	assert.Equal(t, []int{1, 2, 4}, best.Members)
	assert.Equal(t, 1.0, best.Score)
	assert.True(t, best.TransactionShaped)
	assert.False(t, math.IsNaN(best.AvgLength))
}

func TestBest_NoneQualifies(t *testing.T) {
	cfg := DefaultConfig()
	vectors := []layout.Vector{vector(false, false, 20), vector(true, false, 30)}
	_, ok := Best(Evaluate(vectors, []int{0, 1}, cfg), cfg)
	assert.False(t, ok)
}

func TestBest_TieBreaksOnSizeThenLabel(t *testing.T) {
	cfg := DefaultConfig()
	clusters := []Cluster{
		{Label: 2, Members: []int{0, 1}, Score: 1, TransactionShaped: true},
		{Label: 0, Members: []int{2, 3, 4}, Score: 1, TransactionShaped: true},
		{Label: 1, Members: []int{5, 6, 7}, Score: 1, TransactionShaped: true},
	}
	best, ok := Best(clusters, cfg)
	require.True(t, ok)
	assert.Equal(t, 0, best.Label)
}

func TestRun(t *testing.T) {
	lines := layout.TextLines(`ACME BANK STATEMENT
Customer Service 1-800-555-0100
03/01/2024 OFFICE DEPOT #123 45.10
03/03/2024 UBER TRIP HELP.UBER.COM 18.25
03/07/2024 GITHUB INC SUBSCRIPTION 7.00
03/09/2024 STARBUCKS STORE 0042 6.45
Thank you for banking with us`)
	vectors := layout.PageFeatures(lines, layout.PageWidth(models.Page{}, lines))

	clusters := Run(vectors, DefaultConfig())
	best, ok := Best(clusters, DefaultConfig())
	require.True(t, ok)
	assert.Equal(t, 1.0, best.Score)
	for _, m := range best.Members {
		assert.Contains(t, []int{2, 3, 4, 5}, m)
	}
}
