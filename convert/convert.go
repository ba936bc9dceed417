// Package convert 将均匀多导体传输线段转换为 2N 端口S参数块（模态分解法）。
package convert

import (
	"context"
	"math"
	"math/cmplx"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/internal/logging"
	"github.com/1lj4s/HowToElementBuilder/maths"
	"github.com/1lj4s/HowToElementBuilder/network"
	"github.com/1lj4s/HowToElementBuilder/rlgc"
)

// Options 转换选项
type Options struct {
	// Workers 并行处理频点的协程数（<=0 时取 GOMAXPROCS）
	Workers int
	// Logger 日志（nil 时使用全局日志）
	Logger *zap.Logger
}

// Modal 每个频点的模态量
//
//	Gamma - 模态传播常数 γₖ（Re γₖ ≥ 0）
//	Zc    - 特征阻抗矩阵
type Modal struct {
	Freqs []float64
	Gamma [][]complex128
	Zc    []*maths.Dense[complex128]
}

// point 单个频点的计算结果
type point struct {
	s     *maths.Dense[complex128]
	gamma []complex128
	zc    *maths.Dense[complex128]
}

// Convert 逐频点计算线段的S参数
//
// 频点之间没有数据依赖，按 Options.Workers 并行；任一频点失败即取消其余频点并返回该错误。
func Convert(ctx context.Context, seg *rlgc.Segment, opts Options) (*network.Block, *Modal, error) {
	if seg == nil || seg.Tensors == nil {
		return nil, nil, errs.New(errs.InvalidInput, "segment is nil")
	}
	if seg.Length == 0 {
		return nil, nil, errs.New(errs.SingularLineMatrix, "segment has zero length")
	}
	log := logging.Or(opts.Logger)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	m := seg.Len()
	if workers > m {
		workers = m
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan int, m)
	for k := 0; k < m; k++ {
		work <- k
	}
	close(work)

	results := make([]point, m)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range work {
				if ctx.Err() != nil {
					return
				}
				p, err := solvePoint(seg, k)
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				results[k] = p
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	block := &network.Block{Freqs: append([]float64(nil), seg.Freqs...), S: make([]*maths.Dense[complex128], m), Z0: seg.Z0}
	modal := &Modal{Freqs: block.Freqs, Gamma: make([][]complex128, m), Zc: make([]*maths.Dense[complex128], m)}
	for k, p := range results {
		block.S[k] = p.s
		modal.Gamma[k] = p.gamma
		modal.Zc[k] = p.zc
	}
	log.Debug("line converted",
		zap.Int("conductors", seg.Conductors()),
		zap.Int("frequencies", m),
		zap.Float64("length", seg.Length),
		zap.Int("workers", workers))
	return block, modal, nil
}

// solvePoint 计算第 k 个频点
//
// 算法步骤:
//  1. Z = R + jωL，Y = G + jωC
//  2. Z·Y = V·diag(D)·V⁻¹，γₖ = √Dₖ 取实部非负的分支
//  3. Zc = Γ⁻¹·Z，cosh(Γl)、sinh(Γl) 均在同一模态基下计算
//  4. A = cosh，B = sinh·Zc，C = Zc⁻¹·sinh，D = Zc⁻¹·cosh·Zc
//  5. Z11 = A·C⁻¹，Z21 = C⁻¹，Z22 = Z21·D，Z12 = Z11·D - B
//  6. S = (Z - Z0·I)·(Z + Z0·I)⁻¹
func solvePoint(seg *rlgc.Segment, k int) (point, error) {
	f := seg.Freqs[k]
	singular := func(cause error, format string, args ...any) (point, error) {
		return point{}, errs.Wrap(errs.SingularLineMatrix, cause, format, args...).WithContext("frequency", f)
	}
	omega := 2 * math.Pi * f
	z := impedance(seg.R[k], seg.L[k], omega)
	y := impedance(seg.G[k], seg.C[k], omega)

	d, v, err := maths.Eigen(z.Mul(y))
	if err != nil {
		return singular(err, "eigen decomposition of Z·Y failed")
	}
	vinv, err := v.Inverse()
	if err != nil {
		return singular(err, "modal eigenvector matrix is singular")
	}

	n := len(d)
	gamma := make([]complex128, n)
	invGamma := make([]complex128, n)
	ch := make([]complex128, n)
	sh := make([]complex128, n)
	for i, di := range d {
		g := Branch(cmplx.Sqrt(di))
		if g == 0 {
			return singular(nil, "mode %d has zero propagation constant", i)
		}
		gamma[i] = g
		invGamma[i] = 1 / g
		gl := g * complex(seg.Length, 0)
		ch[i] = cmplx.Cosh(gl)
		sh[i] = cmplx.Sinh(gl)
	}
	modal := func(diag []complex128) *maths.Dense[complex128] {
		return v.Mul(maths.Diag(diag)).Mul(vinv)
	}

	zc := modal(invGamma).Mul(z)
	zcInv, err := zc.Inverse()
	if err != nil {
		return singular(err, "characteristic impedance matrix is singular")
	}
	cosh := modal(ch)
	sinh := modal(sh)

	a := cosh
	b := sinh.Mul(zc)
	c := zcInv.Mul(sinh)
	dd := zcInv.Mul(cosh).Mul(zc)

	cInv, err := c.Inverse()
	if err != nil {
		return singular(err, "ABCD C block is singular")
	}
	z11 := a.Mul(cInv)
	z21 := cInv
	z22 := z21.Mul(dd)
	z12 := z11.Mul(dd).Sub(b)
	zFull := maths.Block(z11, z12, z21, z22)

	z0 := complex(seg.Z0, 0)
	s, err := zFull.AddDiag(z0).SolveRight(zFull.AddDiag(-z0))
	if err != nil {
		return singular(err, "Z + Z0·I is singular")
	}
	if !s.IsFinite() {
		return singular(nil, "S matrix has non-finite entries")
	}
	return point{s: s, gamma: gamma, zc: zc}, nil
}

// Branch 选取传播常数的物理分支：Re γ ≥ 0，Re γ = 0 时 Im γ ≥ 0
func Branch(g complex128) complex128 {
	if real(g) < 0 || (real(g) == 0 && imag(g) < 0) {
		return -g
	}
	return g
}

// impedance 组装 re + jω·im
func impedance(re, im *mat.Dense, omega float64) *maths.Dense[complex128] {
	n, _ := re.Dims()
	out := maths.NewDenseMatrix[complex128](n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, complex(re.At(i, j), omega*im.At(i, j)))
		}
	}
	return out
}
