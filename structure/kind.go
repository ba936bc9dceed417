package structure

import (
	"sort"
	"strings"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/network"
	"github.com/1lj4s/HowToElementBuilder/rlgc"
)

// Kind 结构类型
type Kind string

const (
	// Line 均匀（可耦合）传输线，2N 端口
	Line Kind = "line"
	// Curve 圆弧弯线，按中心线长度作为均匀线处理
	Curve Kind = "curve"
	// Taper 渐变线，分段级联
	Taper Kind = "taper"
	// OpenEnd 末端开路的线段（一端口）
	OpenEnd Kind = "open-end"
	// ShortEnd 末端短路的线段（一端口）
	ShortEnd Kind = "short-end"
	// RadialStub 扇形短截线：渐变线末端开路
	RadialStub Kind = "radial-stub"
)

var kinds = map[string]Kind{
	"line": Line, "mlin": Line, "mnlin": Line,
	"curve": Curve, "mcurve": Curve,
	"taper": Taper, "mtaper": Taper,
	"open-end": OpenEnd, "open": OpenEnd,
	"short-end": ShortEnd, "short": ShortEnd,
	"radial-stub": RadialStub, "mrstub": RadialStub,
}

// ParseKind 解析结构类型名（大小写不敏感）
func ParseKind(s string) (Kind, error) {
	if k, ok := kinds[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return "", errs.New(errs.InvalidInput, "unknown structure kind %q (known: %s)", s, strings.Join(names, ", "))
}

// TaperSpec 渐变参数
//
//	Samples  - 实际求解的截面数（默认等于 Segments）
//	Segments - 级联的分段数（默认 10）
type TaperSpec struct {
	W1       float64
	W2       float64
	Profile  Profile
	Samples  int
	Segments int
}

// Spec 结构描述
//
//	Scalars 中的 W、R、Angle、Ro、Theta 按类型使用
type Spec struct {
	Name    string
	Kind    Kind
	Length  float64
	Scalars map[string]float64
	Taper   *TaperSpec
}

// Layout 结构的求解与组合方案
//
//	Widths        - 需要求解的截面宽度（空表示只求解一个截面，参数原样传入）
//	Segments      - 级联段数
//	SegmentLength - 每段长度
//	End           - 非空时远端各端口按此端接
type Layout struct {
	Kind          Kind
	Widths        []float64
	Segments      int
	SegmentLength float64
	End           *network.Termination
}

// DefaultSegments 渐变线默认分段数
const DefaultSegments = 10

// Plan 根据结构描述生成求解方案
func Plan(spec Spec) (*Layout, error) {
	scalar := func(name string) (float64, bool) {
		v, ok := spec.Scalars[name]
		return v, ok
	}
	need := func(name string) (float64, error) {
		v, ok := scalar(name)
		if !ok {
			return 0, errs.New(errs.InvalidInput, "structure %q (%s) needs parameter %s", spec.Name, spec.Kind, name)
		}
		return v, nil
	}
	single := func(length float64) (*Layout, error) {
		if !(length > 0) {
			return nil, errs.New(errs.InvalidInput, "structure %q needs a positive length, got %g", spec.Name, length)
		}
		l := &Layout{Kind: spec.Kind, Segments: 1, SegmentLength: length}
		if w, ok := scalar("W"); ok {
			l.Widths = []float64{w}
		}
		return l, nil
	}

	switch spec.Kind {
	case Line:
		return single(spec.Length)
	case OpenEnd, ShortEnd:
		l, err := single(spec.Length)
		if err != nil {
			return nil, err
		}
		end := network.Termination{Kind: network.Open}
		if spec.Kind == ShortEnd {
			end.Kind = network.Short
		}
		l.End = &end
		return l, nil
	case Curve:
		r, err := need("R")
		if err != nil {
			return nil, err
		}
		angle, err := need("Angle")
		if err != nil {
			return nil, err
		}
		length, err := CurveLength(r, angle)
		if err != nil {
			return nil, err
		}
		return single(length)
	case Taper:
		if spec.Taper == nil {
			return nil, errs.New(errs.InvalidInput, "taper %q has no taper block", spec.Name)
		}
		return taper(spec.Kind, spec.Name, *spec.Taper, spec.Length)
	case RadialStub:
		w, err := need("W")
		if err != nil {
			return nil, err
		}
		ro, err := need("Ro")
		if err != nil {
			return nil, err
		}
		theta, err := need("Theta")
		if err != nil {
			return nil, err
		}
		w1, w2, length, err := RadialStub(w, ro, theta)
		if err != nil {
			return nil, err
		}
		t := TaperSpec{W1: w1, W2: w2, Profile: Linear}
		if spec.Taper != nil {
			t.Samples, t.Segments = spec.Taper.Samples, spec.Taper.Segments
		}
		l, err := taper(spec.Kind, spec.Name, t, length)
		if err != nil {
			return nil, err
		}
		l.End = &network.Termination{Kind: network.Open}
		return l, nil
	}
	return nil, errs.New(errs.InvalidInput, "structure %q has unsupported kind %q", spec.Name, spec.Kind)
}

func taper(kind Kind, name string, t TaperSpec, length float64) (*Layout, error) {
	if !(length > 0) {
		return nil, errs.New(errs.InvalidInput, "structure %q needs a positive length, got %g", name, length)
	}
	if t.Segments == 0 {
		t.Segments = DefaultSegments
	}
	if t.Samples == 0 {
		t.Samples = t.Segments
	}
	if t.Segments < 1 || t.Samples < 2 && t.Segments > 1 {
		return nil, errs.New(errs.InvalidInput, "taper %q needs at least 2 samples for %d segments", name, t.Segments)
	}
	widths, err := TaperWidths(t.W1, t.W2, t.Samples, t.Profile)
	if err != nil {
		return nil, err
	}
	return &Layout{
		Kind:          kind,
		Widths:        widths,
		Segments:      t.Segments,
		SegmentLength: length / float64(t.Segments),
	}, nil
}

// Expand 由求解得到的截面结果生成每一段的结果
//
//	单个截面时每段相同；多个截面时沿长度线性插值到 Segments 段
func (l *Layout) Expand(samples []*rlgc.RawResult) ([]*rlgc.RawResult, error) {
	if len(samples) == 0 {
		return nil, errs.New(errs.InvalidInput, "no solved cross-sections")
	}
	if len(samples) == 1 {
		out := make([]*rlgc.RawResult, l.Segments)
		for i := range out {
			out[i] = samples[0]
		}
		return out, nil
	}
	return rlgc.Interpolate(samples, l.Segments)
}

// Compose 级联各段，并按 End 端接远端端口
func (l *Layout) Compose(blocks []*network.Block) (*network.Block, error) {
	c := &network.Composite{Name: string(l.Kind), Blocks: blocks}
	if l.End != nil && len(blocks) > 0 && blocks[0] != nil {
		p := blocks[0].Ports()
		c.Terminations = make([]network.Termination, p)
		for i := p / 2; i < p; i++ {
			c.Terminations[i] = *l.End
		}
	}
	return c.Reduce()
}
