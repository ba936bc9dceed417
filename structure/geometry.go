// Package structure 描述可仿真的结构类型：需要求解哪些截面、如何分段以及如何组合成最终网络。
package structure

import (
	"math"
	"strings"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
)

// Profile 渐变线宽度分布
type Profile string

const (
	// Linear 等差分布
	Linear Profile = "lin"
	// Log 等比分布
	Log Profile = "log"
)

// ParseProfile 解析宽度分布（空串为 Linear）
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lin", "linear":
		return Linear, nil
	case "log", "exp", "exponential":
		return Log, nil
	}
	return "", errs.New(errs.InvalidInput, "unknown taper profile %q", s)
}

// TaperWidths 在 w1 与 w2 之间生成 n 个宽度（包含两端）
func TaperWidths(w1, w2 float64, n int, profile Profile) ([]float64, error) {
	if !(w1 > 0) || !(w2 > 0) || math.IsInf(w1, 0) || math.IsInf(w2, 0) {
		return nil, errs.New(errs.InvalidInput, "taper widths must be positive, got %g and %g", w1, w2)
	}
	if n < 1 {
		return nil, errs.New(errs.InvalidInput, "taper needs at least one width, got %d", n)
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = w1
		return out, nil
	}
	for i := range out {
		t := float64(i) / float64(n-1)
		switch profile {
		case Log:
			out[i] = math.Exp(math.Log(w1) + t*(math.Log(w2)-math.Log(w1)))
		default:
			out[i] = w1 + t*(w2-w1)
		}
	}
	out[0], out[n-1] = w1, w2
	return out, nil
}

// RadialStub 扇形短截线换算为渐变线
//
//	w     - 起始宽度
//	ro    - 外半径
//	theta - 张角（度）
//
// 返回渐变线起止宽度与长度：扇形在距顶点 180·w/(π·θ) 处宽度为 w，外缘弧长 ro·π·θ/180。
func RadialStub(w, ro, theta float64) (w1, w2, length float64, err error) {
	if !(w > 0) || !(ro > 0) || !(theta > 0) || theta >= 360 {
		return 0, 0, 0, errs.New(errs.InvalidInput, "radial stub needs positive W, Ro and 0 < Theta < 360")
	}
	apex := 180 * w / (math.Pi * theta)
	length = ro - apex
	if !(length > 0) {
		return 0, 0, 0, errs.New(errs.InvalidInput, "radial stub radius %g does not exceed apex distance %g", ro, apex)
	}
	return w, ro * math.Pi * theta / 180, length, nil
}

// CurveLength 圆弧弯线中心线长度（angle 单位为度）
func CurveLength(r, angle float64) (float64, error) {
	if !(r > 0) || !(angle > 0) {
		return 0, errs.New(errs.InvalidInput, "curve needs positive R and Angle, got %g and %g", r, angle)
	}
	return r * angle * math.Pi / 180, nil
}
