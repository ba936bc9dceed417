package structure

import (
	"math"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/rlgc"
)

const (
	// SpeedOfLight 真空光速（m/s）
	SpeedOfLight = 299792458.0
	// Mu0 真空磁导率（H/m）
	Mu0 = 4e-7 * math.Pi
)

// Substrate 微带基板
//
//	Er   - 相对介电常数
//	H    - 基板厚度（m）
//	T    - 导体厚度（m），0 表示忽略厚度修正
//	TanD - 介质损耗角正切
//	Rho  - 导体电阻率（Ω·m）
type Substrate struct {
	Er   float64
	H    float64
	T    float64
	TanD float64
	Rho  float64
}

// Validate 参数检查
func (s Substrate) Validate() error {
	if !(s.Er >= 1) || !(s.H > 0) || s.T < 0 || s.TanD < 0 || s.Rho < 0 {
		return errs.New(errs.InvalidInput, "invalid substrate er=%g h=%g t=%g tand=%g rho=%g", s.Er, s.H, s.T, s.TanD, s.Rho)
	}
	return nil
}

// Microstrip 单根微带线的准静态闭式估算结果
type Microstrip struct {
	Sub    Substrate
	W      float64
	EpsEff float64 // 有效介电常数
	Z0     float64 // 特性阻抗（Ω）
	L      float64 // H/m
	C      float64 // F/m
}

// AnalyzeMicrostrip 按 Hammerstad 有效介电常数与 Wheeler 特性阻抗公式估算
//
// 导体厚度通过等效宽度 w' = w + Δw·(1 + 1/εr)/2 计入。
func AnalyzeMicrostrip(sub Substrate, w float64) (Microstrip, error) {
	if err := sub.Validate(); err != nil {
		return Microstrip{}, err
	}
	if !(w > 0) {
		return Microstrip{}, errs.New(errs.InvalidInput, "microstrip width must be positive, got %g", w)
	}
	er, h := sub.Er, sub.H

	eeff := (er+1)/2 + (er-1)/2/math.Sqrt(1+12*h/w)
	if w/h < 1 {
		eeff += (er - 1) / 2 * 0.04 * (1 - w/h) * (1 - w/h)
	}

	we := w
	if t := sub.T; t > 0 {
		dw := t / math.Pi * math.Log(4*math.E/math.Sqrt((t/h)*(t/h)+math.Pow(1/math.Pi/(w/t+1.1), 2)))
		we = w + dw*(1+1/er)/2
	}

	k := (14 + 8/er) / 11
	x := 4 * h / we
	z0 := 42.4 / math.Sqrt(er+1) * math.Log(1+x*(k*x+math.Sqrt(k*k*x*x+math.Pi*math.Pi*(1+1/er)/2)))

	root := math.Sqrt(eeff)
	return Microstrip{
		Sub:    sub,
		W:      w,
		EpsEff: eeff,
		Z0:     z0,
		L:      z0 * root / SpeedOfLight,
		C:      root / (SpeedOfLight * z0),
	}, nil
}

// Loss 频率 f 下的单位长度电阻与电导
//
//	R = max(Rs/w·(1 + 2/π·atan(1.4·(δ/h)²)), ρ/(w·t))
//	G = 2πf·C·tanδ
func (m Microstrip) Loss(f float64) (r, g float64) {
	sub := m.Sub
	if sub.Rho > 0 && f > 0 {
		rs := math.Sqrt(math.Pi * f * Mu0 * sub.Rho)
		delta := math.Sqrt(sub.Rho / (math.Pi * f * Mu0))
		r = rs / m.W * (1 + 2/math.Pi*math.Atan(1.4*(delta/sub.H)*(delta/sub.H)))
	}
	if sub.Rho > 0 && sub.T > 0 {
		r = math.Max(r, sub.Rho/(m.W*sub.T))
	}
	g = 2 * math.Pi * f * m.C * sub.TanD
	return r, g
}

// Raw 以求解器结果的形式给出估算值（R、G 在 lossFreqs 上取样）
func (m Microstrip) Raw(lossFreqs []float64) (*rlgc.RawResult, error) {
	if len(lossFreqs) == 0 {
		return nil, errs.New(errs.InvalidInput, "no loss frequencies")
	}
	r := make([]float64, len(lossFreqs))
	g := make([]float64, len(lossFreqs))
	for k, f := range lossFreqs {
		r[k], g[k] = m.Loss(f)
	}
	return &rlgc.RawResult{
		L: [][]float64{{m.L}},
		C: [][]float64{{m.C}},
		R: [][][]float64{{r}},
		G: [][][]float64{{g}},
	}, nil
}
