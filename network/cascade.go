package network

import (
	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/maths"
)

// Cascade 按顺序串联多个 2N 端口块
//
// 端口 0..N-1 为左侧，N..2N-1 为右侧；前一块的右侧接到后一块的左侧。
// 满足结合律，不满足交换律。
func Cascade(blocks ...*Block) (*Block, error) {
	if len(blocks) == 0 {
		return nil, errs.New(errs.InvalidInput, "cascade needs at least one block")
	}
	for i, b := range blocks {
		if b == nil {
			return nil, errs.New(errs.InvalidInput, "block %d is nil", i)
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if b.Ports()%2 != 0 {
			return nil, errs.New(errs.PortCountMismatch, "block %d has an odd port count %d", i, b.Ports())
		}
	}
	out := blocks[0].Clone()
	for i, b := range blocks[1:] {
		if err := compatible(out, b); err != nil {
			return nil, errs.Wrap(errs.KindOf(err), err, "cascading block %d", i+1)
		}
		for k := range out.S {
			s, err := connect(out.S[k], b.S[k])
			if err != nil {
				return nil, errs.Wrap(errs.SingularNetwork, err, "cascading block %d", i+1).
					WithContext("frequency", out.Freqs[k])
			}
			out.S[k] = s
		}
	}
	return out, nil
}

// connect 单频点的星积（Redheffer star product）
//
//	S11 = A11 + A12·(I - B11·A22)⁻¹·B11·A21
//	S12 = A12·(I - B11·A22)⁻¹·B12
//	S21 = B21·(I - A22·B11)⁻¹·A21
//	S22 = B22 + B21·(I - A22·B11)⁻¹·A22·B12
func connect(a, b *maths.Dense[complex128]) (*maths.Dense[complex128], error) {
	n := a.Rows() / 2
	a11, a12 := a.Slice(0, 0, n, n), a.Slice(0, n, n, n)
	a21, a22 := a.Slice(n, 0, n, n), a.Slice(n, n, n, n)
	b11, b12 := b.Slice(0, 0, n, n), b.Slice(0, n, n, n)
	b21, b22 := b.Slice(n, 0, n, n), b.Slice(n, n, n, n)
	eye := maths.Identity[complex128](n)

	left, err := factor(eye.Sub(b11.Mul(a22)))
	if err != nil {
		return nil, err
	}
	right, err := factor(eye.Sub(a22.Mul(b11)))
	if err != nil {
		return nil, err
	}
	// x1 = (I - B11·A22)⁻¹·B11·A21, x2 = (I - B11·A22)⁻¹·B12
	x1, err := left.Solve(b11.Mul(a21))
	if err != nil {
		return nil, err
	}
	x2, err := left.Solve(b12)
	if err != nil {
		return nil, err
	}
	// y1 = (I - A22·B11)⁻¹·A21, y2 = (I - A22·B11)⁻¹·A22·B12
	y1, err := right.Solve(a21)
	if err != nil {
		return nil, err
	}
	y2, err := right.Solve(a22.Mul(b12))
	if err != nil {
		return nil, err
	}
	s11 := a11.Add(a12.Mul(x1))
	s12 := a12.Mul(x2)
	s21 := b21.Mul(y1)
	s22 := b22.Add(b21.Mul(y2))
	return maths.Block(s11, s12, s21, s22), nil
}

// factor LU分解，供同一系数矩阵多次求解
func factor(m *maths.Dense[complex128]) (*maths.LU[complex128], error) {
	lu, err := maths.NewLU[complex128](m.Rows())
	if err != nil {
		return nil, err
	}
	if err := lu.Decompose(m); err != nil {
		return nil, err
	}
	return lu, nil
}
