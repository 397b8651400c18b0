// Package cluster partitions line feature vectors with k-means and scores
// the resulting clusters for how transaction-like they look.
package cluster

import "math"

// Standardize rescales every dimension to zero mean and unit variance.
// Dimensions with no variance become zero.
func Standardize(points [][]float64) [][]float64 {
	if len(points) == 0 {
		return nil
	}
	dims := len(points[0])
	n := float64(len(points))

	mean := make([]float64, dims)
	for _, p := range points {
		for d, v := range p {
			mean[d] += v
		}
	}
	for d := range mean {
		mean[d] /= n
	}

	std := make([]float64, dims)
	for _, p := range points {
		for d, v := range p {
			diff := v - mean[d]
			std[d] += diff * diff
		}
	}
	for d := range std {
		std[d] = math.Sqrt(std[d] / n)
	}

	out := make([][]float64, len(points))
	for i, p := range points {
		row := make([]float64, dims)
		for d, v := range p {
			if std[d] > 1e-12 {
				row[d] = (v - mean[d]) / std[d]
			}
		}
		out[i] = row
	}
	return out
}

// KMeans assigns each point a label in [0, k). Initial centroids are picked
// by farthest-point seeding from the first point, so the result depends only
// on the input order. k is clamped to the number of points.
func KMeans(points [][]float64, k, maxIter int) []int {
	n := len(points)
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}
	if maxIter < 1 {
		maxIter = 1
	}

	centroids := seed(points, k)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := nearest(p, centroids)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		centroids = recompute(points, labels, centroids)
	}
	return labels
}

func seed(points [][]float64, k int) [][]float64 {
	centroids := [][]float64{clone(points[0])}
	minDist := make([]float64, len(points))
	for i, p := range points {
		minDist[i] = sqDist(p, centroids[0])
	}

	for len(centroids) < k {
		far := -1
		farDist := 0.0
		for i, d := range minDist {
			if d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			// every remaining point coincides with a centroid
			break
		}
		centroids = append(centroids, clone(points[far]))
		for i, p := range points {
			minDist[i] = math.Min(minDist[i], sqDist(p, points[far]))
		}
	}
	return centroids
}

func recompute(points [][]float64, labels []int, prev [][]float64) [][]float64 {
	dims := len(points[0])
	sums := make([][]float64, len(prev))
	counts := make([]int, len(prev))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, p := range points {
		c := labels[i]
		counts[c]++
		for d, v := range p {
			sums[c][d] += v
		}
	}
	for c := range sums {
		if counts[c] == 0 {
			// keep an emptied centroid where it was
			sums[c] = clone(prev[c])
			continue
		}
		for d := range sums[c] {
			sums[c][d] /= float64(counts[c])
		}
	}
	return sums
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
