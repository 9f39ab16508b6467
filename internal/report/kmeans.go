package report

import (
	"math"
	"math/rand"
)

// clusterCount implements SPEC_FULL.md §4.5 step 4's bucket rule.
func clusterCount(n int) int {
	switch {
	case n < 3:
		return 1
	case n < 10:
		return 2
	case n < 20:
		return 3
	case n < 40:
		return 4
	default:
		return 5
	}
}

// kMeans runs Lloyd's algorithm on points (each a fixed-dimension vector),
// k clusters, with `restarts` independent random initializations seeded
// deterministically from seed, keeping the lowest-inertia result. Returns an
// assignment slice (one cluster index per point).
func kMeans(points [][]float32, k int, seed int64, restarts int) []int {
	n := len(points)
	if n == 0 {
		return nil
	}
	if k >= n {
		assign := make([]int, n)
		for i := range assign {
			assign[i] = i
		}
		return assign
	}
	if k < 1 {
		k = 1
	}

	dim := len(points[0])
	var bestAssign []int
	bestInertia := math.Inf(1)

	for restart := 0; restart < restarts; restart++ {
		rng := rand.New(rand.NewSource(seed + int64(restart)))
		centroids := initCentroids(points, k, rng)

		assign := make([]int, n)
		for iter := 0; iter < 100; iter++ {
			changed := false
			for i, p := range points {
				best := 0
				bestDist := math.Inf(1)
				for c, centroid := range centroids {
					d := sqDist(p, centroid)
					if d < bestDist {
						bestDist = d
						best = c
					}
				}
				if assign[i] != best {
					assign[i] = best
					changed = true
				}
			}

			newCentroids := make([][]float32, k)
			counts := make([]int, k)
			for c := range newCentroids {
				newCentroids[c] = make([]float32, dim)
			}
			for i, p := range points {
				c := assign[i]
				counts[c]++
				for d := 0; d < dim; d++ {
					newCentroids[c][d] += p[d]
				}
			}
			for c := range newCentroids {
				if counts[c] == 0 {
					newCentroids[c] = centroids[c]
					continue
				}
				for d := 0; d < dim; d++ {
					newCentroids[c][d] /= float32(counts[c])
				}
			}
			centroids = newCentroids

			if !changed && iter > 0 {
				break
			}
		}

		inertia := 0.0
		for i, p := range points {
			inertia += sqDist(p, centroids[assign[i]])
		}
		if inertia < bestInertia {
			bestInertia = inertia
			bestAssign = append([]int(nil), assign...)
		}
	}

	return bestAssign
}

func initCentroids(points [][]float32, k int, rng *rand.Rand) [][]float32 {
	idx := rng.Perm(len(points))[:k]
	centroids := make([][]float32, k)
	for i, pi := range idx {
		centroids[i] = append([]float32(nil), points[pi]...)
	}
	return centroids
}

func sqDist(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return sum
}
