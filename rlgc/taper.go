package rlgc

import (
	"sort"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
)

// Interpolate 在 K 个样本几何之间线性插值出 n 个结果
//
//	样本位于归一化位置 i/(K-1)，输出位于 j/(n-1)（n == 1 时取 0）
//	每个数值字段逐元素独立插值；n == K 时输出与样本完全一致
func Interpolate(samples []*RawResult, n int) ([]*RawResult, error) {
	k := len(samples)
	if k < 2 {
		return nil, errs.New(errs.InvalidInput, "taper interpolation needs at least 2 samples, got %d", k)
	}
	if n < 1 {
		return nil, errs.New(errs.InvalidInput, "taper interpolation needs at least 1 output, got %d", n)
	}
	for i, s := range samples {
		if s == nil {
			return nil, errs.New(errs.InvalidInput, "sample %d is nil", i)
		}
		if err := s.Validate(); err != nil {
			return nil, errs.Wrap(errs.KindOf(err), err, "sample %d", i)
		}
		if !sameShape(samples[0], s) {
			return nil, errs.New(errs.MalformedResult, "sample %d shape %s differs from sample 0 shape %s", i, s, samples[0])
		}
	}
	xs := make([]float64, k)
	for i := range xs {
		xs[i] = float64(i) / float64(k-1)
	}
	out := make([]*RawResult, n)
	for j := 0; j < n; j++ {
		t := 0.0
		if n > 1 {
			t = float64(j) / float64(n-1)
		}
		idx := sort.SearchFloat64s(xs, t) - 1
		if idx < 0 {
			idx = 0
		}
		if idx > k-2 {
			idx = k - 2
		}
		alpha := (t - xs[idx]) / (xs[idx+1] - xs[idx])
		out[j] = blend(samples[idx], samples[idx+1], alpha)
	}
	return out, nil
}

func sameShape(a, b *RawResult) bool {
	return a.Conductors() == b.Conductors() && a.LossSamples() == b.LossSamples()
}

func blend(a, b *RawResult, alpha float64) *RawResult {
	mix := func(x, y float64) float64 {
		if alpha == 0 {
			return x
		}
		if alpha == 1 {
			return y
		}
		return x*(1-alpha) + y*alpha
	}
	matrix := func(x, y [][]float64) [][]float64 {
		out := make([][]float64, len(x))
		for i := range x {
			out[i] = make([]float64, len(x[i]))
			for j := range x[i] {
				out[i][j] = mix(x[i][j], y[i][j])
			}
		}
		return out
	}
	tensor := func(x, y [][][]float64) [][][]float64 {
		out := make([][][]float64, len(x))
		for i := range x {
			out[i] = make([][]float64, len(x[i]))
			for j := range x[i] {
				out[i][j] = make([]float64, len(x[i][j]))
				for f := range x[i][j] {
					out[i][j][f] = mix(x[i][j][f], y[i][j][f])
				}
			}
		}
		return out
	}
	return &RawResult{
		L: matrix(a.L, b.L),
		C: matrix(a.C, b.C),
		R: tensor(a.R, b.R),
		G: tensor(a.G, b.G),
	}
}
