package cluster

import (
	"fmt"
	"math"
	"math/rand"
)

const defaultMaxIterations = 100

// KMeans is a flat, iterative centroid-based clusterer. Every Fit call
// seeds its own random source, so results are reproducible for a given
// seed and input.
type KMeans struct {
	MaxIterations int
	Seed          int64
}

// NewKMeans returns a clusterer with the default iteration cap.
func NewKMeans(seed int64) *KMeans {
	return &KMeans{MaxIterations: defaultMaxIterations, Seed: seed}
}

// Result holds one fitted partition of the input points.
type Result struct {
	Assignments []int
	Centroids   [][]float64
	// Inertia is the sum of squared euclidean distances from each point to
	// its assigned centroid.
	Inertia float64
}

// Fit partitions points into k clusters.
func (km *KMeans) Fit(points [][]float64, k int) (*Result, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no points to cluster")
	}
	if k <= 0 || k > len(points) {
		return nil, fmt.Errorf("invalid k=%d for %d points", k, len(points))
	}

	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("point %d has %d dimensions, want %d", i, len(p), dim)
		}
	}

	maxIter := km.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	rng := rand.New(rand.NewSource(km.Seed))
	centroids := initCentroids(points, k, rng)

	var assignments []int
	converged := false
	for iter := 0; iter < maxIter && !converged; iter++ {
		next := make([]int, len(points))
		for i, p := range points {
			next[i] = nearestCentroid(p, centroids)
		}

		if iter > 0 {
			converged = true
			for i := range assignments {
				if assignments[i] != next[i] {
					converged = false
					break
				}
			}
		}
		assignments = next

		if !converged {
			centroids = updateCentroids(points, assignments, centroids, k, dim)
		}
	}

	inertia := 0.0
	for i, p := range points {
		inertia += squaredDistance(p, centroids[assignments[i]])
	}

	return &Result{Assignments: assignments, Centroids: centroids, Inertia: inertia}, nil
}

// SearchK fits candidate cluster counts from 2 up to max(2, n/2) inclusive
// and picks the elbow of the resulting inertia curve.
func (km *KMeans) SearchK(points [][]float64) (int, error) {
	n := len(points)
	lower := 2
	upper := n / 2
	if upper < lower {
		upper = lower
	}

	inertias := make([]float64, 0, upper-lower+1)
	for k := lower; k <= upper; k++ {
		res, err := km.Fit(points, k)
		if err != nil {
			return 0, fmt.Errorf("fit k=%d: %w", k, err)
		}
		inertias = append(inertias, res.Inertia)
	}

	return BestK(lower, inertias), nil
}

// initCentroids picks starting centroids with the k-means++ strategy:
// the first one uniformly, the rest weighted by squared distance to the
// nearest already chosen centroid.
func initCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	dim := len(points[0])
	centroids := make([][]float64, k)

	first := rng.Intn(len(points))
	centroids[0] = append(make([]float64, 0, dim), points[first]...)

	for i := 1; i < k; i++ {
		weights := make([]float64, len(points))
		total := 0.0
		for j, p := range points {
			min := math.Inf(1)
			for c := 0; c < i; c++ {
				if d := squaredDistance(p, centroids[c]); d < min {
					min = d
				}
			}
			weights[j] = min
			total += min
		}

		if total == 0 {
			// All remaining points coincide with a centroid already.
			idx := rng.Intn(len(points))
			centroids[i] = append(make([]float64, 0, dim), points[idx]...)
			continue
		}

		target := rng.Float64() * total
		cumulative := 0.0
		selected := len(points) - 1
		for j, w := range weights {
			cumulative += w
			if cumulative >= target {
				selected = j
				break
			}
		}
		centroids[i] = append(make([]float64, 0, dim), points[selected]...)
	}

	return centroids
}

func nearestCentroid(point []float64, centroids [][]float64) int {
	best := 0
	min := math.Inf(1)
	for i, c := range centroids {
		if d := squaredDistance(point, c); d < min {
			min = d
			best = i
		}
	}
	return best
}

// updateCentroids recomputes each centroid as the mean of its members.
// A cluster that lost all members keeps its previous centroid.
func updateCentroids(points [][]float64, assignments []int, previous [][]float64, k, dim int) [][]float64 {
	centroids := make([][]float64, k)
	counts := make([]int, k)
	for i := range centroids {
		centroids[i] = make([]float64, dim)
	}

	for i, p := range points {
		id := assignments[i]
		counts[id]++
		for j, v := range p {
			centroids[id][j] += v
		}
	}

	for i := range centroids {
		if counts[i] == 0 {
			copy(centroids[i], previous[i])
			continue
		}
		for j := range centroids[i] {
			centroids[i][j] /= float64(counts[i])
		}
	}

	return centroids
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
