package clu

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// DistanceFunc is a distance function: symmetric, zero on identical
// sequences, non-negative. No other metric property (e.g. the triangle
// inequality) is assumed by the core.
type DistanceFunc interface {
	Distance(a, b Sequence) float64
}

// DTWDistance is the default DistanceFunc, a dynamic time warping
// measure over Euclidean point cost. It runs the classic O(nm)
// dynamic-programming formulation rather than an approximate banded
// search, since the core places no requirement on sub-quadratic
// behavior.
//
// TimesCalled is an optional monotonic invocation counter for telemetry:
// the core never reads it for correctness.
type DTWDistance struct {
	timesCalled atomic.Int64
}

// Distance implements DistanceFunc.
func (d *DTWDistance) Distance(a, b Sequence) float64 {
	d.timesCalled.Add(1)
	if len(a) == 0 || len(b) == 0 {
		if len(a) == len(b) {
			return 0
		}
		return math.Inf(1)
	}

	n, m := len(a), len(b)
	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := 1; j <= m; j++ {
		prev[j] = math.Inf(1)
	}
	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			cost := pointDistance(a[i-1], b[j-1])
			best := prev[j]
			if prev[j-1] < best {
				best = prev[j-1]
			}
			if curr[j-1] < best {
				best = curr[j-1]
			}
			curr[j] = cost + best
		}
		prev, curr = curr, prev
	}
	return prev[m]
}

// TimesCalled returns the number of Distance invocations observed so far.
func (d *DTWDistance) TimesCalled() int64 {
	return d.timesCalled.Load()
}

// pointDistance returns the Euclidean distance between two same- or
// differently-sized points, padding the shorter with zeros.
func pointDistance(a, b Point) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	diff := make([]float64, n)
	for i := 0; i < n; i++ {
		var av, bv float64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		diff[i] = av - bv
	}
	return floats.Norm(diff, 2)
}
