package maths

import (
	"math/cmplx"
	"testing"
)

// checkEigen 验证 A·V = V·diag(λ) 且 V 可逆
func checkEigen(t *testing.T, a *Dense[complex128], tol float64) []complex128 {
	t.Helper()
	values, v, err := Eigen(a)
	if err != nil {
		t.Fatalf("Eigen failed: %v", err)
	}
	if len(values) != a.Rows() {
		t.Fatalf("特征值数量 %d, 期望 %d", len(values), a.Rows())
	}
	lhs := a.Mul(v)
	rhs := v.Mul(Diag(values))
	scale := a.MaxAbs()
	if d := lhs.Sub(rhs).MaxAbs(); d > tol*scale {
		t.Errorf("A·V - V·Λ 残差 %g 超出容差", d)
	}
	if _, err := v.Inverse(); err != nil {
		t.Errorf("特征向量矩阵不可逆: %v", err)
	}
	return values
}

// containsValue 判断 values 中是否存在与 want 足够接近的值
func containsValue(values []complex128, want complex128, tol float64) bool {
	for _, v := range values {
		if cmplx.Abs(v-want) <= tol*(1+cmplx.Abs(want)) {
			return true
		}
	}
	return false
}

func TestEigenKnown2x2(t *testing.T) {
	// [[2, 1], [1, 2]] 的特征值为 1 与 3
	a := NewDenseFrom([][]complex128{{2, 1}, {1, 2}})
	values := checkEigen(t, a, 1e-12)
	for _, want := range []complex128{1, 3} {
		if !containsValue(values, want, 1e-12) {
			t.Errorf("缺少特征值 %v, 得到 %v", want, values)
		}
	}
}

func TestEigenRotation(t *testing.T) {
	// 实旋转矩阵的特征值为 ±i
	a := NewDenseFrom([][]complex128{{0, -1}, {1, 0}})
	values := checkEigen(t, a, 1e-12)
	for _, want := range []complex128{1i, -1i} {
		if !containsValue(values, want, 1e-12) {
			t.Errorf("缺少特征值 %v, 得到 %v", want, values)
		}
	}
}

func TestEigenDiagonalRepeated(t *testing.T) {
	// 两条互不耦合的相同传输线：重特征值，特征向量仍需线性无关
	d := complex(-3.9e3, 12.5)
	a := Diag([]complex128{d, d, 2 * d})
	values := checkEigen(t, a, 1e-12)
	for _, want := range []complex128{d, 2 * d} {
		if !containsValue(values, want, 1e-12) {
			t.Errorf("缺少特征值 %v, 得到 %v", want, values)
		}
	}
}

func TestEigenCoupledLineProduct(t *testing.T) {
	// 三导体有损耦合线在 1GHz 时的 Z·Y
	w := complex(0, 2*3.141592653589793e9)
	l := NewDenseFrom([][]complex128{
		{4.2e-7, 1.1e-7, 0.4e-7},
		{1.1e-7, 4.0e-7, 1.1e-7},
		{0.4e-7, 1.1e-7, 4.2e-7},
	})
	c := NewDenseFrom([][]complex128{
		{1.6e-10, -0.3e-10, -0.05e-10},
		{-0.3e-10, 1.7e-10, -0.3e-10},
		{-0.05e-10, -0.3e-10, 1.6e-10},
	})
	r := Diag([]complex128{5, 5, 5})
	g := Diag([]complex128{1e-3, 1e-3, 1e-3})
	z := r.Add(l.Scale(w))
	y := g.Add(c.Scale(w))
	checkEigen(t, z.Mul(y), 1e-10)
}

func TestEigenGeneral4x4(t *testing.T) {
	a := NewDenseFrom([][]complex128{
		{1 + 2i, 3, -1i, 0.5},
		{2, -1 + 1i, 4, 1i},
		{0.5i, 1, 3 - 1i, -2},
		{1, -1, 2i, 0.25},
	})
	values := checkEigen(t, a, 1e-10)

	// 特征值之和等于迹
	var sum, trace complex128
	for i, v := range values {
		sum += v
		trace += a.Get(i, i)
	}
	if cmplx.Abs(sum-trace) > 1e-10 {
		t.Errorf("特征值之和 %v 与迹 %v 不一致", sum, trace)
	}
}

func TestEigenScalar(t *testing.T) {
	values, v, err := Eigen(NewDenseFrom([][]complex128{{-2 + 1i}}))
	if err != nil {
		t.Fatalf("Eigen failed: %v", err)
	}
	if values[0] != -2+1i || v.Get(0, 0) != 1 {
		t.Errorf("1×1 特征分解错误: %v %v", values, v)
	}
}
