// Package network 实现多端口S参数网络的级联、端接与化简。
package network

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/maths"
)

// Block 多端口S参数块
//
//	Freqs - 频率轴（Hz，严格递增）
//	S     - 每个频点一个 P×P 复矩阵，S[k].Get(i, j) 为端口 j 入射到端口 i 的散射系数
//	Z0    - 所有端口共用的参考阻抗
type Block struct {
	Freqs []float64
	S     []*maths.Dense[complex128]
	Z0    float64
}

// NewBlock 创建并校验S参数块
func NewBlock(freqs []float64, s []*maths.Dense[complex128], z0 float64) (*Block, error) {
	b := &Block{Freqs: freqs, S: s, Z0: z0}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Ports 端口数
func (b *Block) Ports() int {
	if len(b.S) == 0 {
		return 0
	}
	return b.S[0].Rows()
}

// Len 频点数
func (b *Block) Len() int {
	return len(b.Freqs)
}

// At 第 k 个频点的 S[i][j]
func (b *Block) At(i, j, k int) complex128 {
	return b.S[k].Get(i, j)
}

// Validate 检查形状：方阵、各频点端口数一致、频率轴长度与矩阵数一致
func (b *Block) Validate() error {
	if len(b.Freqs) == 0 {
		return errs.New(errs.InvalidInput, "block has no frequencies")
	}
	if len(b.S) != len(b.Freqs) {
		return errs.New(errs.PortCountMismatch, "block has %d matrices for %d frequencies", len(b.S), len(b.Freqs))
	}
	if math.IsNaN(b.Z0) || b.Z0 <= 0 {
		return errs.New(errs.InvalidInput, "reference impedance %g is invalid", b.Z0)
	}
	p := b.Ports()
	if p == 0 {
		return errs.New(errs.InvalidInput, "block has no ports")
	}
	for k, s := range b.S {
		if s == nil || s.Rows() != p || s.Cols() != p {
			return errs.New(errs.PortCountMismatch, "frequency %d matrix is not %dx%d", k, p, p)
		}
		if k > 0 && !(b.Freqs[k] > b.Freqs[k-1]) {
			return errs.New(errs.InvalidInput, "frequencies are not strictly increasing at index %d", k)
		}
	}
	return nil
}

// Clone 深拷贝
func (b *Block) Clone() *Block {
	out := &Block{
		Freqs: append([]float64(nil), b.Freqs...),
		S:     make([]*maths.Dense[complex128], len(b.S)),
		Z0:    b.Z0,
	}
	for k, s := range b.S {
		out.S[k] = s.Clone()
	}
	return out
}

// compatible 检查两个块可以组合：端口数、频率轴与参考阻抗一致
func compatible(a, b *Block) error {
	if a.Ports() != b.Ports() {
		return errs.New(errs.PortCountMismatch, "port counts differ: %d vs %d", a.Ports(), b.Ports())
	}
	if len(a.Freqs) != len(b.Freqs) {
		return errs.New(errs.PortCountMismatch, "frequency axes differ in length: %d vs %d", len(a.Freqs), len(b.Freqs))
	}
	for k := range a.Freqs {
		if math.Abs(a.Freqs[k]-b.Freqs[k]) > 1e-9*math.Max(1, math.Abs(a.Freqs[k])) {
			return errs.New(errs.PortCountMismatch, "frequency axes differ at index %d: %g vs %g", k, a.Freqs[k], b.Freqs[k])
		}
	}
	if math.Abs(a.Z0-b.Z0) > 1e-12*a.Z0 {
		return errs.New(errs.InvalidInput, "reference impedances differ: %g vs %g", a.Z0, b.Z0)
	}
	return nil
}

// Reciprocity 最大互易偏差 max|S[i][j] - S[j][i]|
func Reciprocity(b *Block) float64 {
	worst := 0.0
	p := b.Ports()
	for _, s := range b.S {
		for i := 0; i < p; i++ {
			for j := i + 1; j < p; j++ {
				worst = math.Max(worst, cmplx.Abs(s.Get(i, j)-s.Get(j, i)))
			}
		}
	}
	return worst
}

// PassivityDeviation 最大功率守恒偏差 max_j |Σ_i |S[i][j]|² - 1|
//
//	无损网络应接近 0，有损网络的列和小于 1
func PassivityDeviation(b *Block) float64 {
	worst := 0.0
	p := b.Ports()
	for _, s := range b.S {
		for j := 0; j < p; j++ {
			sum := 0.0
			for i := 0; i < p; i++ {
				v := s.Get(i, j)
				sum += real(v)*real(v) + imag(v)*imag(v)
			}
			worst = math.Max(worst, math.Abs(sum-1))
		}
	}
	return worst
}

// String 简要描述
func (b *Block) String() string {
	if b.Len() == 0 {
		return "Block{}"
	}
	return fmt.Sprintf("Block{ports=%d, freqs=%d [%g..%g] Hz, z0=%g}", b.Ports(), b.Len(), b.Freqs[0], b.Freqs[b.Len()-1], b.Z0)
}
