// Package rlgc 负责求解器原始结果的解析、校验以及损耗参数到分析频点的插值。
package rlgc

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
)

// RawResult 单个几何结构的求解器输出（单位长度参数）
//
//	L, C - N×N，在参考点求得，与频率无关
//	R, G - N×N×K，在 K 个损耗频点求得（R[i][j][k]）
type RawResult struct {
	L [][]float64   `json:"mL"`
	C [][]float64   `json:"mC"`
	R [][][]float64 `json:"mR"`
	G [][][]float64 `json:"mG"`
}

// Decode 解析求解器输出的单行JSON对象
func Decode(line []byte) (*RawResult, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, errs.Wrap(errs.MalformedResult, err, "result is not a JSON object")
	}
	for _, key := range []string{"mL", "mC", "mR", "mG"} {
		if _, ok := probe[key]; !ok {
			return nil, errs.New(errs.MalformedResult, "result is missing key %q", key)
		}
	}
	raw := &RawResult{}
	if err := json.Unmarshal(line, raw); err != nil {
		return nil, errs.Wrap(errs.MalformedResult, err, "result matrices have unexpected types")
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	return raw, nil
}

// Conductors 导体数 N
func (r *RawResult) Conductors() int {
	return len(r.L)
}

// LossSamples 损耗频点数 K（R 的第三维长度）
func (r *RawResult) LossSamples() int {
	if len(r.R) == 0 || len(r.R[0]) == 0 {
		return 0
	}
	return len(r.R[0][0])
}

// Validate 校验矩阵形状与取值：
//
//	L、C 为 N×N 对称半正定矩阵
//	R、G 为 N×N×K（K ≥ 1），对角元非负
func (r *RawResult) Validate() error {
	n := len(r.L)
	if n == 0 {
		return errs.New(errs.MalformedResult, "mL is empty")
	}
	if err := checkSquare("mL", r.L, n); err != nil {
		return err
	}
	if err := checkSquare("mC", r.C, n); err != nil {
		return err
	}
	k := r.LossSamples()
	if k == 0 {
		return errs.New(errs.MalformedResult, "mR has no frequency samples")
	}
	if err := checkTensor("mR", r.R, n, k); err != nil {
		return err
	}
	if err := checkTensor("mG", r.G, n, k); err != nil {
		return err
	}
	if err := checkSymmetricPSD("mL", r.L); err != nil {
		return err
	}
	return checkSymmetricPSD("mC", r.C)
}

func checkSquare(name string, m [][]float64, n int) error {
	if len(m) != n {
		return errs.New(errs.MalformedResult, "%s has %d rows, want %d", name, len(m), n)
	}
	for i, row := range m {
		if len(row) != n {
			return errs.New(errs.MalformedResult, "%s row %d has %d columns, want %d", name, i, len(row), n)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errs.New(errs.MalformedResult, "%s has non-finite entries", name)
			}
		}
	}
	return nil
}

func checkTensor(name string, t [][][]float64, n, k int) error {
	if len(t) != n {
		return errs.New(errs.MalformedResult, "%s has %d rows, want %d", name, len(t), n)
	}
	for i, row := range t {
		if len(row) != n {
			return errs.New(errs.MalformedResult, "%s row %d has %d columns, want %d", name, i, len(row), n)
		}
		for j, samples := range row {
			if len(samples) != k {
				return errs.New(errs.MalformedResult, "%s[%d][%d] has %d samples, want %d", name, i, j, len(samples), k)
			}
			for _, v := range samples {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return errs.New(errs.MalformedResult, "%s has non-finite entries", name)
				}
				if i == j && v < 0 {
					return errs.New(errs.MalformedResult, "%s[%d][%d] has negative diagonal %g", name, i, j, v)
				}
			}
		}
	}
	return nil
}

// symmetryTol 求解器输出的对称性相对容差
const symmetryTol = 1e-6

// checkSymmetricPSD 检查对称性，并用 gonum 的对称特征分解检查半正定性
func checkSymmetricPSD(name string, m [][]float64) error {
	n := len(m)
	scale := 0.0
	for _, row := range m {
		for _, v := range row {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	if scale == 0 {
		return errs.New(errs.MalformedResult, "%s is identically zero", name)
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if math.Abs(m[i][j]-m[j][i]) > symmetryTol*scale {
				return errs.New(errs.MalformedResult, "%s is not symmetric at (%d,%d)", name, i, j)
			}
			sym.SetSym(i, j, (m[i][j]+m[j][i])/2)
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return errs.New(errs.MalformedResult, "%s eigen decomposition failed", name)
	}
	for _, v := range eig.Values(nil) {
		if v < -symmetryTol*scale {
			return errs.New(errs.MalformedResult, "%s is not positive semi-definite (eigenvalue %g)", name, v)
		}
	}
	return nil
}

// Dense 将二维切片转换为 gonum 矩阵（复制数据）
func Dense(m [][]float64) *mat.Dense {
	n := len(m)
	if n == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(n, len(m[0]), nil)
	for i, row := range m {
		d.SetRow(i, row)
	}
	return d
}

// Slice 取 R/G 张量在第 k 个损耗频点的 N×N 矩阵
func Slice(t [][][]float64, k int) *mat.Dense {
	n := len(t)
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d.Set(i, j, t[i][j][k])
		}
	}
	return d
}

// String 简要描述
func (r *RawResult) String() string {
	return fmt.Sprintf("RawResult{N=%d, K=%d}", r.Conductors(), r.LossSamples())
}
