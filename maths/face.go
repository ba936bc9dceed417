package maths

import (
	"errors"
	"math"
	"math/cmplx"
)

// Epsilon 双精度机器精度
const Epsilon = 2.220446049250313e-16

// ErrSingular 矩阵奇异或接近奇异
var ErrSingular = errors.New("matrix is singular or nearly singular")

// ErrNoConvergence 特征值迭代未收敛
var ErrNoConvergence = errors.New("eigenvalue iteration did not converge")

// Number 是一个约束，允许任何浮点或复数类型
type Number interface {
	~float32 | ~float64 | ~complex64 | ~complex128
}

// Abs 是一个泛型函数，返回任何支持的 Number 类型的绝对值（复数取模）。
func Abs[T Number](v T) float64 {
	// 通过类型断言检查具体类型
	switch x := any(v).(type) {
	case float32:
		return math.Abs(float64(x))
	case float64:
		return math.Abs(x)
	case complex64:
		return cmplx.Abs(complex128(x))
	case complex128:
		return cmplx.Abs(x)
	}
	return 0
}

// IsFinite 判断数值是否为有限值（复数要求实部虚部均有限）
func IsFinite[T Number](v T) bool {
	switch x := any(v).(type) {
	case float32:
		return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	case complex64:
		return !cmplx.IsNaN(complex128(x)) && !cmplx.IsInf(complex128(x))
	case complex128:
		return !cmplx.IsNaN(x) && !cmplx.IsInf(x)
	}
	return false
}
