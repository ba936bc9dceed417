package maths

import (
	"errors"
	"testing"
)

// TestLuDenseSolve 验证实数稠密矩阵的 LU 分解和求解过程。
func TestLuDenseSolve(t *testing.T) {
	// 求解线性方程组 Ax = b
	// A = [[2, 3, 1],
	//      [1, 2, 3],
	//      [3, 1, 2]]
	// b = [9, 6, 8]
	// 预期解 x = [35/18, 29/18, 5/18]
	a := NewDenseFrom([][]float64{
		{2, 3, 1},
		{1, 2, 3},
		{3, 1, 2},
	})
	b := []float64{9, 6, 8}

	lu, err := NewLU[float64](3)
	if err != nil {
		t.Fatalf("NewLU failed: %v", err)
	}
	if err := lu.Decompose(a); err != nil {
		t.Fatalf("Decomposition failed: %v", err)
	}
	x := make([]float64, 3)
	if err := lu.SolveReuse(b, x); err != nil {
		t.Fatalf("SolveReuse failed: %v", err)
	}

	expected := []float64{35.0 / 18.0, 29.0 / 18.0, 5.0 / 18.0}
	for i := range expected {
		if Abs(x[i]-expected[i]) > 1e-12 {
			t.Errorf("x[%d] 不正确: 得到 %v, 期望 %v", i, x[i], expected[i])
		}
	}
}

// TestLuDenseSolveComplex 验证复数稠密矩阵的 LU 分解和求解过程。
func TestLuDenseSolveComplex(t *testing.T) {
	// A = [[1+2i, 2+3i],
	//      [3+4i, 4+5i]]
	// b = A·[1+i, 2-i]
	a := NewDenseFrom([][]complex128{
		{1 + 2i, 2 + 3i},
		{3 + 4i, 4 + 5i},
	})
	want := []complex128{1 + 1i, 2 - 1i}
	b := []complex128{
		(1+2i)*want[0] + (2+3i)*want[1],
		(3+4i)*want[0] + (4+5i)*want[1],
	}

	lu, err := NewLU[complex128](2)
	if err != nil {
		t.Fatalf("NewLU failed for complex: %v", err)
	}
	if err := lu.Decompose(a); err != nil {
		t.Fatalf("Decomposition failed for complex: %v", err)
	}
	x := make([]complex128, 2)
	if err := lu.SolveReuse(b, x); err != nil {
		t.Fatalf("SolveReuse failed: %v", err)
	}
	for i := range want {
		if Abs(x[i]-want[i]) > 1e-12 {
			t.Errorf("x[%d] 不正确: 得到 %v, 期望 %v", i, x[i], want[i])
		}
	}
}

// TestLuDenseSingular 验证 Decompose 能识别奇异矩阵。
func TestLuDenseSingular(t *testing.T) {
	// 第三行为前两行的线性组合
	a := NewDenseFrom([][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{5, 7, 9},
	})
	lu, _ := NewLU[float64](3)
	if err := lu.Decompose(a); !errors.Is(err, ErrSingular) {
		t.Fatalf("期望 ErrSingular, 得到 %v", err)
	}

	// 全零矩阵
	if _, err := NewDenseMatrix[complex128](2, 2).Inverse(); !errors.Is(err, ErrSingular) {
		t.Fatalf("零矩阵求逆期望 ErrSingular, 得到 %v", err)
	}
}

// TestLuScaleInvariant 验证判零阈值相对于矩阵量级，极小量级的非奇异矩阵可正常求逆。
func TestLuScaleInvariant(t *testing.T) {
	a := NewDenseFrom([][]complex128{
		{2e-14, 1e-14},
		{1e-14, 3e-14},
	})
	inv, err := a.Inverse()
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}
	prod := a.Mul(inv)
	id := Identity[complex128](2)
	if d := prod.Sub(id).MaxAbs(); d > 1e-12 {
		t.Errorf("A·A⁻¹ 偏离单位矩阵 %g", d)
	}
}

// TestInverseAndSolveRight 验证求逆、左除与右除的一致性。
func TestInverseAndSolveRight(t *testing.T) {
	a := NewDenseFrom([][]complex128{
		{4 + 1i, 1, 0.5i},
		{1, 3 - 2i, 1},
		{-0.5i, 1, 2 + 0.5i},
	})
	b := NewDenseFrom([][]complex128{
		{1, 2i, 0},
		{0, 1, 1 - 1i},
		{3, 0, 1},
	})
	inv, err := a.Inverse()
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}
	left, err := a.Solve(b)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if d := left.Sub(inv.Mul(b)).MaxAbs(); d > 1e-12 {
		t.Errorf("A⁻¹·B 与 Solve 不一致: %g", d)
	}
	right, err := a.SolveRight(b)
	if err != nil {
		t.Fatalf("SolveRight failed: %v", err)
	}
	if d := right.Sub(b.Mul(inv)).MaxAbs(); d > 1e-12 {
		t.Errorf("B·A⁻¹ 与 SolveRight 不一致: %g", d)
	}
}
