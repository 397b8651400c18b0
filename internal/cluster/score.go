package cluster

import (
	"github.com/insightdelivered/statement-expenses/internal/layout"
)

// Config holds the clustering heuristics. The defaults separate transaction
// rows from headers and summaries on the statements we have seen; the best
// cluster count per document size is still an open question.
type Config struct {
	Clusters      int     `mapstructure:"clusters"`
	MaxIterations int     `mapstructure:"max_iterations"`
	MinScore      float64 `mapstructure:"min_score"`
	MinAmountRate float64 `mapstructure:"min_amount_rate"`
	MinDateRate   float64 `mapstructure:"min_date_rate"`
	MinAvgLength  float64 `mapstructure:"min_avg_length"`
}

// DefaultConfig returns the stock heuristics.
func DefaultConfig() Config {
	return Config{
		Clusters:      3,
		MaxIterations: 50,
		MinScore:      0.5,
		MinAmountRate: 0.5,
		MinDateRate:   0.5,
		MinAvgLength:  12,
	}
}

// Cluster is a group of lines with its aggregate statistics.
type Cluster struct {
	Label             int
	Members           []int
	AmountRate        float64
	DateRate          float64
	BothRate          float64
	AvgLength         float64
	Score             float64
	TransactionShaped bool
}

// Size is the number of member lines.
func (c Cluster) Size() int {
	return len(c.Members)
}

// Evaluate builds one Cluster per label and scores it.
func Evaluate(vectors []layout.Vector, labels []int, cfg Config) []Cluster {
	byLabel := map[int]*Cluster{}
	var order []int
	for i, label := range labels {
		c, ok := byLabel[label]
		if !ok {
			c = &Cluster{Label: label}
			byLabel[label] = c
			order = append(order, label)
		}
		c.Members = append(c.Members, i)
	}

	out := make([]Cluster, 0, len(order))
	for _, label := range order {
		c := byLabel[label]
		var amount, date, both, length float64
		for _, i := range c.Members {
			v := vectors[i]
			hasAmount := v[layout.FeatHasAmount] > 0
			hasDate := v[layout.FeatHasDate] > 0
			if hasAmount {
				amount++
			}
			if hasDate {
				date++
			}
			if hasAmount && hasDate {
				both++
			}
			length += v[layout.FeatLength]
		}
		n := float64(len(c.Members))
		c.AmountRate = amount / n
		c.DateRate = date / n
		c.BothRate = both / n
		c.AvgLength = length / n
		c.Score = c.BothRate
		c.TransactionShaped = c.AmountRate >= cfg.MinAmountRate &&
			c.DateRate >= cfg.MinDateRate &&
			c.AvgLength >= cfg.MinAvgLength
		out = append(out, *c)
	}
	return out
}

// Best returns the highest scoring transaction-shaped cluster whose score
// reaches cfg.MinScore. Ties go to the larger cluster, then the lower label.
func Best(clusters []Cluster, cfg Config) (Cluster, bool) {
	var best Cluster
	found := false
	for _, c := range clusters {
		if !c.TransactionShaped || c.Score < cfg.MinScore {
			continue
		}
		if !found || better(c, best) {
			best, found = c, true
		}
	}
	return best, found
}

func better(a, b Cluster) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Size() != b.Size() {
		return a.Size() > b.Size()
	}
	return a.Label < b.Label
}

// Run standardizes the vectors, clusters them and returns the scored clusters.
func Run(vectors []layout.Vector, cfg Config) []Cluster {
	points := make([][]float64, len(vectors))
	for i, v := range vectors {
		points[i] = v.Slice()
	}
	labels := KMeans(Standardize(points), cfg.Clusters, cfg.MaxIterations)
	return Evaluate(vectors, labels, cfg)
}
