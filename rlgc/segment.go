package rlgc

import (
	"math"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
)

// Segment 一段均匀多导体传输线
//
//	Tensors - 分析频点上的 RLGC
//	Length  - 物理长度（米）
//	Z0      - 参考阻抗（欧姆）
type Segment struct {
	*Tensors
	Length float64
	Z0     float64
}

// NewSegment 创建线段并校验参数
//
//	长度为零不在此处拒绝，由转换阶段报告 SingularLineMatrix
func NewSegment(t *Tensors, length, z0 float64) (*Segment, error) {
	if t == nil || t.Len() == 0 || t.Conductors() == 0 {
		return nil, errs.New(errs.InvalidInput, "segment has no RLGC data")
	}
	if math.IsNaN(length) || math.IsInf(length, 0) || length < 0 {
		return nil, errs.New(errs.InvalidInput, "segment length %g is invalid", length)
	}
	if math.IsNaN(z0) || math.IsInf(z0, 0) || z0 <= 0 {
		return nil, errs.New(errs.InvalidInput, "reference impedance %g is invalid", z0)
	}
	n := t.Conductors()
	for k := 0; k < t.Len(); k++ {
		for _, m := range [...]interface{ Dims() (int, int) }{t.R[k], t.L[k], t.G[k], t.C[k]} {
			if r, c := m.Dims(); r != n || c != n {
				return nil, errs.New(errs.MalformedResult, "frequency %d has a %dx%d matrix, want %dx%d", k, r, c, n, n)
			}
		}
	}
	return &Segment{Tensors: t, Length: length, Z0: z0}, nil
}
