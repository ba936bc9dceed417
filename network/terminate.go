package network

import (
	"math/cmplx"
	"strconv"
	"strings"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/maths"
)

// TermKind 端口端接方式
type TermKind int

const (
	// Port 保留为外部端口
	Port TermKind = iota
	// Match 匹配负载（Γ = 0）
	Match
	// Open 开路（Γ = +1）
	Open
	// Short 短路（Γ = -1）
	Short
	// Load 任意阻抗负载 Γ = (Z - Z0)/(Z + Z0)
	Load
	// Reflect 直接给定反射系数
	Reflect
)

var termNames = [...]string{"port", "match", "open", "short", "load", "reflect"}

// String 名称
func (k TermKind) String() string {
	if int(k) < len(termNames) {
		return termNames[k]
	}
	return "TermKind(" + strconv.Itoa(int(k)) + ")"
}

// Termination 单个端口的端接描述
type Termination struct {
	Kind      TermKind
	Impedance complex128 // Kind == Load
	Gamma     complex128 // Kind == Reflect
}

// Reflection 相对参考阻抗 z0 的反射系数
func (t Termination) Reflection(z0 float64) complex128 {
	switch t.Kind {
	case Open:
		return 1
	case Short:
		return -1
	case Load:
		if cmplx.IsInf(t.Impedance) {
			return 1
		}
		return (t.Impedance - complex(z0, 0)) / (t.Impedance + complex(z0, 0))
	case Reflect:
		return t.Gamma
	}
	return 0
}

// ParseTermination 解析端口代码
//
//	port/p         - 保留端口
//	r/match/m      - 匹配负载
//	i/open/o       - 开路
//	s/short        - 短路
//	load:<欧姆>    - 电阻负载
//	d              - 子电路连接，暂不支持
func ParseTermination(code string) (Termination, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	switch c {
	case "port", "p":
		return Termination{Kind: Port}, nil
	case "r", "match", "m":
		return Termination{Kind: Match}, nil
	case "i", "open", "o":
		return Termination{Kind: Open}, nil
	case "s", "short":
		return Termination{Kind: Short}, nil
	case "d":
		return Termination{}, errs.New(errs.InvalidInput, "subcircuit termination %q is not supported", code)
	}
	if v, ok := strings.CutPrefix(c, "load:"); ok {
		z, err := strconv.ParseFloat(v, 64)
		if err != nil || z < 0 {
			return Termination{}, errs.New(errs.InvalidInput, "invalid load impedance in %q", code)
		}
		return Termination{Kind: Load, Impedance: complex(z, 0)}, nil
	}
	return Termination{}, errs.New(errs.InvalidInput, "unknown port code %q", code)
}

// ParsePorts 逐个解析端口代码
func ParsePorts(codes []string) ([]Termination, error) {
	out := make([]Termination, len(codes))
	for i, code := range codes {
		t, err := ParseTermination(code)
		if err != nil {
			return nil, errs.Wrap(errs.KindOf(err), err, "port %d", i+1)
		}
		out[i] = t
	}
	return out, nil
}

// Terminate 按端接描述化简网络
//
// 被端接端口满足 a_T = Γ·b_T，代入得
//
//	S' = S_PP + S_PT·Γ·(I - S_TT·Γ)⁻¹·S_TP
//
// 保留端口按原相对顺序重新编号。
func Terminate(b *Block, terms []Termination) (*Block, error) {
	if b == nil {
		return nil, errs.New(errs.InvalidInput, "block is nil")
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if len(terms) != b.Ports() {
		return nil, errs.New(errs.TerminationCountMismatch, "%d terminations for a %d-port network", len(terms), b.Ports())
	}
	var kept, terminated []int
	var gamma []complex128
	for i, t := range terms {
		if t.Kind == Port {
			kept = append(kept, i)
			continue
		}
		terminated = append(terminated, i)
		gamma = append(gamma, t.Reflection(b.Z0))
	}
	if len(kept) == 0 {
		return nil, errs.New(errs.InvalidInput, "all %d ports are terminated", b.Ports())
	}
	if len(terminated) == 0 {
		return b.Clone(), nil
	}

	g := maths.Diag(gamma)
	eye := maths.Identity[complex128](len(terminated))
	out := &Block{Freqs: append([]float64(nil), b.Freqs...), S: make([]*maths.Dense[complex128], b.Len()), Z0: b.Z0}
	for k, s := range b.S {
		spp := s.Select(kept, kept)
		spt := s.Select(kept, terminated)
		stp := s.Select(terminated, kept)
		stt := s.Select(terminated, terminated)
		x, err := eye.Sub(stt.Mul(g)).Solve(stp)
		if err != nil {
			return nil, errs.Wrap(errs.SingularNetwork, err, "terminating ports %v", terminated).
				WithContext("frequency", b.Freqs[k])
		}
		out.S[k] = spp.Add(spt.Mul(g).Mul(x))
	}
	return out, nil
}

// OnePort 以反射系数 gamma 端接二端口的端口2，得到一端口
//
//	S' = S11 + S12·S21·Γ/(1 - S22·Γ)；gamma = +1 开路，-1 短路
func OnePort(b *Block, gamma complex128) (*Block, error) {
	if b == nil {
		return nil, errs.New(errs.InvalidInput, "block is nil")
	}
	if b.Ports() != 2 {
		return nil, errs.New(errs.PortCountMismatch, "one-port reduction needs a 2-port, got %d ports", b.Ports())
	}
	return Terminate(b, []Termination{{Kind: Port}, {Kind: Reflect, Gamma: gamma}})
}
