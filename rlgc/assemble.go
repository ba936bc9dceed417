package rlgc

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
)

// Tensors 分析频点上的单位长度参数，每个频点一个 N×N 矩阵
type Tensors struct {
	Freqs []float64
	R     []*mat.Dense
	L     []*mat.Dense
	G     []*mat.Dense
	C     []*mat.Dense
}

// Conductors 导体数 N
func (t *Tensors) Conductors() int {
	if len(t.L) == 0 {
		return 0
	}
	r, _ := t.L[0].Dims()
	return r
}

// Len 分析频点数 M
func (t *Tensors) Len() int {
	return len(t.Freqs)
}

// LinearSweep 生成 [start, stop) 区间内步长为 step 的频点
func LinearSweep(start, stop, step float64) ([]float64, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, errs.New(errs.InvalidInput, "sweep step must be positive, got %g", step)
	}
	if !(stop > start) || math.IsInf(stop, 0) || start < 0 {
		return nil, errs.New(errs.InvalidInput, "sweep range [%g, %g) is empty", start, stop)
	}
	n := int(math.Ceil((stop-start)/step - 1e-9))
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = start + float64(i)*step
	}
	return freqs, nil
}

// CheckSweep 频点须有限、非负且严格递增
func CheckSweep(name string, freqs []float64) error {
	if len(freqs) == 0 {
		return errs.New(errs.InvalidInput, "%s is empty", name)
	}
	for i, f := range freqs {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return errs.New(errs.InvalidInput, "%s[%d] = %g is not a valid frequency", name, i, f)
		}
		if i > 0 && f <= freqs[i-1] {
			return errs.New(errs.InvalidInput, "%s is not strictly increasing at index %d", name, i)
		}
	}
	return nil
}

// Assemble 将原始结果展开到分析频点
//
//	L、C 在所有频点上复制
//	loss 为 false 时 R、G 为零矩阵
//	loss 为 true 时 R、G 的每个元素在 lossFreqs 上分段线性插值，区间外线性外推，单个样本视为常数
func Assemble(raw *RawResult, lossFreqs, sweep []float64, loss bool) (*Tensors, error) {
	if raw == nil {
		return nil, errs.New(errs.MalformedResult, "raw result is nil")
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	if err := CheckSweep("analysis sweep", sweep); err != nil {
		return nil, err
	}
	n := raw.Conductors()
	m := len(sweep)
	t := &Tensors{
		Freqs: append([]float64(nil), sweep...),
		R:     make([]*mat.Dense, m),
		L:     make([]*mat.Dense, m),
		G:     make([]*mat.Dense, m),
		C:     make([]*mat.Dense, m),
	}
	l := Dense(raw.L)
	c := Dense(raw.C)
	for k := 0; k < m; k++ {
		t.L[k] = mat.DenseCopyOf(l)
		t.C[k] = mat.DenseCopyOf(c)
		t.R[k] = mat.NewDense(n, n, nil)
		t.G[k] = mat.NewDense(n, n, nil)
	}
	if !loss {
		return t, nil
	}
	if err := CheckSweep("loss frequencies", lossFreqs); err != nil {
		return nil, err
	}
	if len(lossFreqs) != raw.LossSamples() {
		return nil, errs.New(errs.MalformedResult, "result has %d loss samples but %d loss frequencies are configured",
			raw.LossSamples(), len(lossFreqs))
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r := Interp(lossFreqs, raw.R[i][j], sweep)
			g := Interp(lossFreqs, raw.G[i][j], sweep)
			for k := 0; k < m; k++ {
				t.R[k].Set(i, j, r[k])
				t.G[k].Set(i, j, g[k])
			}
		}
	}
	return t, nil
}

// Interp 分段线性插值，区间外按端部线段线性外推
//
//	xs 严格递增；len(xs) == 1 时结果恒为 ys[0]
func Interp(xs, ys, at []float64) []float64 {
	out := make([]float64, len(at))
	if len(xs) == 1 {
		for i := range out {
			out[i] = ys[0]
		}
		return out
	}
	for i, x := range at {
		idx := sort.SearchFloat64s(xs, x) - 1
		if idx < 0 {
			idx = 0
		}
		if idx > len(xs)-2 {
			idx = len(xs) - 2
		}
		x0, x1 := xs[idx], xs[idx+1]
		alpha := (x - x0) / (x1 - x0)
		out[i] = ys[idx]*(1-alpha) + ys[idx+1]*alpha
	}
	return out
}
