package cluster

import "math"

// BestK picks the elbow of an inertia curve by maximum deviation from the
// chord joining its endpoints. inertias[i] is the inertia at
// k = lowerBound + i. With fewer than two samples no shape can be
// inferred and the lower bound is returned. Ties keep the first (smallest
// k) index.
func BestK(lowerBound int, inertias []float64) int {
	if len(inertias) < 2 {
		return lowerBound
	}

	highest := inertias[0]
	lowest := inertias[len(inertias)-1]
	step := (highest - lowest) / float64(len(inertias)-1)

	best := 0
	maxDistance := math.Inf(-1)
	for i, inertia := range inertias {
		chord := highest - float64(i)*step
		distance := math.Abs(inertia - chord)
		if distance > maxDistance {
			maxDistance = distance
			best = i
		}
	}

	return lowerBound + best
}
