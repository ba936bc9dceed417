// Package report 将S参数块绘制为交互式HTML图表（go-echarts）和静态图片（gonum/plot）。
package report

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/1lj4s/HowToElementBuilder/network"
)

// floorDB |S| 为零时使用的分贝下限
const floorDB = -300

// Trace 一条 S[i][j] 曲线
type Trace struct {
	Name  string
	I, J  int
	GHz   []float64
	DB    []float64
	Phase []float64 // 度
}

// DefaultPairs 默认绘制的端口对：4 端口及以下全部绘制，更多端口时只绘制第一列与对角线
func DefaultPairs(ports int) [][2]int {
	var pairs [][2]int
	for i := 0; i < ports; i++ {
		for j := 0; j < ports; j++ {
			if ports <= 4 || j == 0 || i == j {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// Traces 提取曲线；pairs 为空时使用 DefaultPairs
func Traces(b *network.Block, pairs [][2]int) ([]Trace, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		pairs = DefaultPairs(b.Ports())
	}
	ghz := make([]float64, b.Len())
	for k, f := range b.Freqs {
		ghz[k] = f / 1e9
	}
	out := make([]Trace, 0, len(pairs))
	for _, p := range pairs {
		i, j := p[0], p[1]
		if i < 0 || j < 0 || i >= b.Ports() || j >= b.Ports() {
			return nil, fmt.Errorf("port pair (%d,%d) is outside a %d-port block", i+1, j+1, b.Ports())
		}
		t := Trace{
			Name:  fmt.Sprintf("S%d%d", i+1, j+1),
			I:     i,
			J:     j,
			GHz:   ghz,
			DB:    make([]float64, b.Len()),
			Phase: make([]float64, b.Len()),
		}
		if b.Ports() > 9 {
			t.Name = fmt.Sprintf("S%d,%d", i+1, j+1)
		}
		for k := range b.Freqs {
			v := b.At(i, j, k)
			t.DB[k] = DB(v)
			t.Phase[k] = cmplx.Phase(v) * 180 / math.Pi
		}
		out = append(out, t)
	}
	return out, nil
}

// DB 20·log10|v|，下限 floorDB
func DB(v complex128) float64 {
	a := cmplx.Abs(v)
	if a == 0 {
		return floorDB
	}
	return math.Max(20*math.Log10(a), floorDB)
}
