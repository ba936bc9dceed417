package maths

import (
	"errors"
	"fmt"
)

// LU 稠密矩阵LU分解器（PA = LU，带部分主元）
//
// 分解结果原位存放在一个 n×n 矩阵中：
//
//	严格下三角 - L 的消元因子（L 对角线为1，不存储）
//	上三角     - U
type LU[T Number] struct {
	n   int       // 矩阵维度（方阵n×n）
	lu  *Dense[T] // L 与 U 的合并存储
	P   []int     // 置换向量：P[i] = 分解后第i行对应的原始矩阵行索引
	tol float64   // 主元判零阈值（相对于输入矩阵最大元素）
}

// NewLU 创建LU分解器（输入矩阵维度n）
// 参数:
//
//	n - 矩阵维度（必须为正整数）
//
// 返回:
//
//	LU实例，错误信息
func NewLU[T Number](n int) (*LU[T], error) {
	if n < 1 {
		return nil, errors.New("lu dimension must be positive")
	}
	return &LU[T]{
		n:  n,
		lu: NewDenseMatrix[T](n, n),
		P:  make([]int, n),
	}, nil
}

// Dim 获取矩阵维度
func (lu *LU[T]) Dim() int {
	return lu.n
}

// Decompose 执行LU分解（高斯消元+部分主元）
// 参数:
//
//	matrix - 输入矩阵A（必须为n×n方阵，不会被修改）
//
// 返回:
//
//	ErrSingular - 主元模小于 n·ε·max|A|（或矩阵全零）
//
// 算法步骤:
//  1. 拷贝A，初始化置换向量P为单位置换
//  2. 对每一列k：在[k, n-1]行中选取模最大的元素为主元并交换行
//  3. 计算消元因子存入严格下三角，更新右下子块
func (lu *LU[T]) Decompose(matrix *Dense[T]) error {
	if !matrix.IsSquare() {
		return errors.New("lu decompose: input must be square matrix")
	}
	if matrix.Rows() != lu.n {
		return fmt.Errorf("lu decompose: matrix dimension mismatch: got %d, want %d", matrix.Rows(), lu.n)
	}

	copy(lu.lu.data, matrix.data)
	for i := range lu.P {
		lu.P[i] = i
	}
	scale := matrix.MaxAbs()
	if scale == 0 || !matrix.IsFinite() {
		return ErrSingular
	}
	lu.tol = float64(lu.n) * Epsilon * scale

	n, a := lu.n, lu.lu.data
	for k := 0; k < n; k++ {
		// 部分主元选择
		maxRow, maxAbs := k, Abs(a[k*n+k])
		for i := k + 1; i < n; i++ {
			if v := Abs(a[i*n+k]); v > maxAbs {
				maxRow, maxAbs = i, v
			}
		}
		if maxAbs <= lu.tol {
			return ErrSingular
		}
		if maxRow != k {
			lu.lu.SwapRows(k, maxRow)
			lu.P[k], lu.P[maxRow] = lu.P[maxRow], lu.P[k]
		}

		pivot := a[k*n+k]
		for i := k + 1; i < n; i++ {
			factor := a[i*n+k] / pivot
			a[i*n+k] = factor
			if factor == 0 {
				continue
			}
			for j := k + 1; j < n; j++ {
				a[i*n+j] -= factor * a[k*n+j]
			}
		}
	}
	return nil
}

// SolveReuse 解线性方程组 Ax = b，结果写入预分配的 x
// 1. 前向替换：Ly = Pb
// 2. 后向替换：Ux = y
func (lu *LU[T]) SolveReuse(b, x []T) error {
	if len(b) != lu.n || len(x) != lu.n {
		return errors.New("vector dimension mismatch")
	}
	n, a := lu.n, lu.lu.data
	y := make([]T, n)
	for i := 0; i < n; i++ {
		sum := b[lu.P[i]]
		for j := 0; j < i; j++ {
			sum -= a[i*n+j] * y[j]
		}
		y[i] = sum
	}
	for i := n - 1; i >= 0; i-- {
		sum := y[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i*n+j] * x[j]
		}
		x[i] = sum / a[i*n+i]
	}
	return nil
}

// Solve 解矩阵方程 AX = B（逐列求解）
func (lu *LU[T]) Solve(b *Dense[T]) (*Dense[T], error) {
	if b.Rows() != lu.n {
		return nil, errors.New("matrix dimension mismatch")
	}
	out := NewDenseMatrix[T](lu.n, b.Cols())
	col := make([]T, lu.n)
	x := make([]T, lu.n)
	for j := 0; j < b.Cols(); j++ {
		for i := 0; i < lu.n; i++ {
			col[i] = b.data[i*b.cols+j]
		}
		if err := lu.SolveReuse(col, x); err != nil {
			return nil, err
		}
		for i := 0; i < lu.n; i++ {
			out.data[i*out.cols+j] = x[i]
		}
	}
	return out, nil
}

// Inverse 矩阵求逆
func (m *Dense[T]) Inverse() (*Dense[T], error) {
	if !m.IsSquare() {
		return nil, errors.New("inverse: matrix must be square")
	}
	lu, err := NewLU[T](m.Rows())
	if err != nil {
		return nil, err
	}
	if err := lu.Decompose(m); err != nil {
		return nil, err
	}
	return lu.Solve(Identity[T](m.Rows()))
}

// Solve 返回 m⁻¹·b
func (m *Dense[T]) Solve(b *Dense[T]) (*Dense[T], error) {
	if !m.IsSquare() {
		return nil, errors.New("solve: matrix must be square")
	}
	lu, err := NewLU[T](m.Rows())
	if err != nil {
		return nil, err
	}
	if err := lu.Decompose(m); err != nil {
		return nil, err
	}
	return lu.Solve(b)
}

// SolveRight 返回 b·m⁻¹（通过 (mᵀ)⁻¹·bᵀ 转置求得）
func (m *Dense[T]) SolveRight(b *Dense[T]) (*Dense[T], error) {
	x, err := m.Transpose().Solve(b.Transpose())
	if err != nil {
		return nil, err
	}
	return x.Transpose(), nil
}
