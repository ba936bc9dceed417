package maths

import (
	"fmt"
	"strings"
)

// Dense 稠密矩阵（行优先连续存储）
type Dense[T Number] struct {
	rows, cols int
	data       []T
}

// NewDenseMatrix 创建指定维度的零矩阵
func NewDenseMatrix[T Number](rows, cols int) *Dense[T] {
	if rows < 0 || cols < 0 {
		panic("invalid matrix dimensions: cannot be negative")
	}
	return &Dense[T]{rows: rows, cols: cols, data: make([]T, rows*cols)}
}

// NewDenseFrom 从二维切片构建矩阵（复制数据，各行长度必须一致）
func NewDenseFrom[T Number](dense [][]T) *Dense[T] {
	rows := len(dense)
	cols := 0
	if rows > 0 {
		cols = len(dense[0])
	}
	m := NewDenseMatrix[T](rows, cols)
	for i, row := range dense {
		if len(row) != cols {
			panic(fmt.Sprintf("dimension mismatch: row %d has %d columns, want %d", i, len(row), cols))
		}
		copy(m.data[i*cols:(i+1)*cols], row)
	}
	return m
}

// Identity 单位矩阵
func Identity[T Number](n int) *Dense[T] {
	m := NewDenseMatrix[T](n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// Diag 以给定向量为对角线的方阵
func Diag[T Number](d []T) *Dense[T] {
	n := len(d)
	m := NewDenseMatrix[T](n, n)
	for i, v := range d {
		m.data[i*n+i] = v
	}
	return m
}

// Block 按 2×2 分块拼接矩阵：
//
//	| a11 a12 |
//	| a21 a22 |
func Block[T Number](a11, a12, a21, a22 *Dense[T]) *Dense[T] {
	if a11.rows != a12.rows || a21.rows != a22.rows || a11.cols != a21.cols || a12.cols != a22.cols {
		panic("block dimension mismatch")
	}
	m := NewDenseMatrix[T](a11.rows+a21.rows, a11.cols+a12.cols)
	m.SetSlice(0, 0, a11)
	m.SetSlice(0, a11.cols, a12)
	m.SetSlice(a11.rows, 0, a21)
	m.SetSlice(a11.rows, a11.cols, a22)
	return m
}

// Rows 返回矩阵行数
func (m *Dense[T]) Rows() int { return m.rows }

// Cols 返回矩阵列数
func (m *Dense[T]) Cols() int { return m.cols }

// IsSquare 判断是否为方阵
func (m *Dense[T]) IsSquare() bool { return m.rows == m.cols }

func (m *Dense[T]) checkBounds(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("index out of range: (%d, %d) with size %dx%d", row, col, m.rows, m.cols))
	}
}

// Get 获取指定行列元素值（越界panic）
func (m *Dense[T]) Get(row, col int) T {
	m.checkBounds(row, col)
	return m.data[row*m.cols+col]
}

// Set 设置指定行列元素值（越界panic）
func (m *Dense[T]) Set(row, col int, value T) {
	m.checkBounds(row, col)
	m.data[row*m.cols+col] = value
}

// Increment 增量更新元素
func (m *Dense[T]) Increment(row, col int, value T) {
	m.checkBounds(row, col)
	m.data[row*m.cols+col] += value
}

// Row 返回第 row 行的副本
func (m *Dense[T]) Row(row int) []T {
	m.checkBounds(row, 0)
	out := make([]T, m.cols)
	copy(out, m.data[row*m.cols:(row+1)*m.cols])
	return out
}

// ToDense 转换为二维切片
func (m *Dense[T]) ToDense() [][]T {
	out := make([][]T, m.rows)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// Clone 深拷贝
func (m *Dense[T]) Clone() *Dense[T] {
	c := &Dense[T]{rows: m.rows, cols: m.cols, data: make([]T, len(m.data))}
	copy(c.data, m.data)
	return c
}

// SwapRows 交换两行
func (m *Dense[T]) SwapRows(row1, row2 int) {
	if row1 == row2 {
		return
	}
	m.checkBounds(row1, 0)
	m.checkBounds(row2, 0)
	r1 := m.data[row1*m.cols : (row1+1)*m.cols]
	r2 := m.data[row2*m.cols : (row2+1)*m.cols]
	for j := range r1 {
		r1[j], r2[j] = r2[j], r1[j]
	}
}

// Mul 矩阵乘法 m*b
func (m *Dense[T]) Mul(b *Dense[T]) *Dense[T] {
	if m.cols != b.rows {
		panic(fmt.Sprintf("dimension mismatch: %dx%d * %dx%d", m.rows, m.cols, b.rows, b.cols))
	}
	out := NewDenseMatrix[T](m.rows, b.cols)
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		dst := out.data[i*b.cols : (i+1)*b.cols]
		for k, a := range row {
			if a == 0 {
				continue
			}
			src := b.data[k*b.cols : (k+1)*b.cols]
			for j, v := range src {
				dst[j] += a * v
			}
		}
	}
	return out
}

// Add 矩阵加法 m+b
func (m *Dense[T]) Add(b *Dense[T]) *Dense[T] {
	m.sameShape(b)
	out := m.Clone()
	for i, v := range b.data {
		out.data[i] += v
	}
	return out
}

// Sub 矩阵减法 m-b
func (m *Dense[T]) Sub(b *Dense[T]) *Dense[T] {
	m.sameShape(b)
	out := m.Clone()
	for i, v := range b.data {
		out.data[i] -= v
	}
	return out
}

// Scale 数乘
func (m *Dense[T]) Scale(s T) *Dense[T] {
	out := m.Clone()
	for i := range out.data {
		out.data[i] *= s
	}
	return out
}

// AddDiag 返回 m + s*I
func (m *Dense[T]) AddDiag(s T) *Dense[T] {
	if !m.IsSquare() {
		panic("AddDiag: matrix must be square")
	}
	out := m.Clone()
	for i := 0; i < m.rows; i++ {
		out.data[i*m.cols+i] += s
	}
	return out
}

// Transpose 转置（不取共轭）
func (m *Dense[T]) Transpose() *Dense[T] {
	out := NewDenseMatrix[T](m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[j*m.rows+i] = m.data[i*m.cols+j]
		}
	}
	return out
}

// Slice 复制从 (r0, c0) 开始的 rows×cols 子块
func (m *Dense[T]) Slice(r0, c0, rows, cols int) *Dense[T] {
	if r0 < 0 || c0 < 0 || r0+rows > m.rows || c0+cols > m.cols {
		panic("sub-matrix dimensions exceed base matrix boundaries")
	}
	out := NewDenseMatrix[T](rows, cols)
	for i := 0; i < rows; i++ {
		copy(out.data[i*cols:(i+1)*cols], m.data[(r0+i)*m.cols+c0:(r0+i)*m.cols+c0+cols])
	}
	return out
}

// SetSlice 将 b 写入从 (r0, c0) 开始的子块
func (m *Dense[T]) SetSlice(r0, c0 int, b *Dense[T]) {
	if r0 < 0 || c0 < 0 || r0+b.rows > m.rows || c0+b.cols > m.cols {
		panic("sub-matrix dimensions exceed base matrix boundaries")
	}
	for i := 0; i < b.rows; i++ {
		copy(m.data[(r0+i)*m.cols+c0:(r0+i)*m.cols+c0+b.cols], b.data[i*b.cols:(i+1)*b.cols])
	}
}

// Select 按行、列索引抽取子矩阵（索引顺序即结果顺序）
func (m *Dense[T]) Select(rows, cols []int) *Dense[T] {
	out := NewDenseMatrix[T](len(rows), len(cols))
	for i, r := range rows {
		for j, c := range cols {
			out.data[i*len(cols)+j] = m.Get(r, c)
		}
	}
	return out
}

// MaxAbs 元素绝对值最大值
func (m *Dense[T]) MaxAbs() float64 {
	max := 0.0
	for _, v := range m.data {
		if a := Abs(v); a > max {
			max = a
		}
	}
	return max
}

// IsFinite 所有元素均为有限值
func (m *Dense[T]) IsFinite() bool {
	for _, v := range m.data {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}

func (m *Dense[T]) sameShape(b *Dense[T]) {
	if m.rows != b.rows || m.cols != b.cols {
		panic(fmt.Sprintf("dimension mismatch: %dx%d vs %dx%d", m.rows, m.cols, b.rows, b.cols))
	}
}

// String 格式化输出矩阵
func (m *Dense[T]) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%10.4g", m.data[i*m.cols+j])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
