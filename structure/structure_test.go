package structure

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/maths"
	"github.com/1lj4s/HowToElementBuilder/network"
	"github.com/1lj4s/HowToElementBuilder/rlgc"
)

func TestTaperWidths(t *testing.T) {
	lin, err := TaperWidths(10e-6, 50e-6, 5, Linear)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10e-6, 20e-6, 30e-6, 40e-6, 50e-6}, lin, 1e-18)

	geo, err := TaperWidths(10e-6, 40e-6, 3, Log)
	require.NoError(t, err)
	assert.Equal(t, 10e-6, geo[0])
	assert.InDelta(t, 20e-6, geo[1], 1e-18)
	assert.Equal(t, 40e-6, geo[2])

	one, err := TaperWidths(7e-6, 9e-6, 1, Linear)
	require.NoError(t, err)
	assert.Equal(t, []float64{7e-6}, one)

	_, err = TaperWidths(0, 1, 3, Linear)
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}

func TestParseProfileAndKind(t *testing.T) {
	p, err := ParseProfile("Exponential")
	require.NoError(t, err)
	assert.Equal(t, Log, p)
	_, err = ParseProfile("cubic")
	assert.Error(t, err)

	k, err := ParseKind("MRSTUB")
	require.NoError(t, err)
	assert.Equal(t, RadialStub, k)
	_, err = ParseKind("mxover")
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}

func TestRadialStub(t *testing.T) {
	w1, w2, length, err := RadialStub(70e-6, 250e-6, 45)
	require.NoError(t, err)
	assert.Equal(t, 70e-6, w1)
	assert.InDelta(t, 250e-6*math.Pi/4, w2, 1e-15)
	assert.InDelta(t, 250e-6-4*70e-6/math.Pi, length, 1e-15)

	_, _, _, err = RadialStub(70e-6, 50e-6, 45)
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}

func TestCurveLength(t *testing.T) {
	l, err := CurveLength(150e-6, 90)
	require.NoError(t, err)
	assert.InDelta(t, 150e-6*math.Pi/2, l, 1e-15)
	_, err = CurveLength(0, 90)
	assert.Error(t, err)
}

func TestMicrostrip(t *testing.T) {
	sub := Substrate{Er: 12.9, H: 100e-6, T: 2e-6, TanD: 0.017, Rho: 1.72e-8}
	m, err := AnalyzeMicrostrip(sub, 70e-6)
	require.NoError(t, err)
	assert.Greater(t, m.EpsEff, (sub.Er+1)/2)
	assert.Less(t, m.EpsEff, sub.Er)
	assert.Greater(t, m.Z0, 40.0)
	assert.Less(t, m.Z0, 70.0)
	assert.InDelta(t, m.EpsEff/(SpeedOfLight*SpeedOfLight), m.L*m.C, 1e-12*m.L*m.C)
	assert.InDelta(t, m.Z0, math.Sqrt(m.L/m.C), 1e-9*m.Z0)

	wide, err := AnalyzeMicrostrip(sub, 140e-6)
	require.NoError(t, err)
	assert.Less(t, wide.Z0, m.Z0)

	r1, g1 := m.Loss(1e9)
	r4, g4 := m.Loss(4e9)
	assert.Greater(t, r1, 0.0)
	assert.Greater(t, r4, r1)
	assert.InDelta(t, 4*g1, g4, 1e-12*g4)
	assert.InDelta(t, 2*math.Pi*1e9*m.C*0.017, g1, 1e-15)

	rdc, gdc := m.Loss(0)
	assert.InDelta(t, sub.Rho/(70e-6*2e-6), rdc, 1e-12)
	assert.Equal(t, 0.0, gdc)

	raw, err := m.Raw([]float64{1e9, 4e9})
	require.NoError(t, err)
	require.NoError(t, raw.Validate())
	assert.Equal(t, []float64{r1, r4}, raw.R[0][0])

	_, err = AnalyzeMicrostrip(Substrate{Er: 0.5, H: 1e-4}, 1e-4)
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}

func TestPlanLineAndEnds(t *testing.T) {
	l, err := Plan(Spec{Name: "l", Kind: Line, Length: 1e-3, Scalars: map[string]float64{"W": 20e-6}})
	require.NoError(t, err)
	assert.Equal(t, []float64{20e-6}, l.Widths)
	assert.Equal(t, 1, l.Segments)
	assert.Equal(t, 1e-3, l.SegmentLength)
	assert.Nil(t, l.End)

	l, err = Plan(Spec{Name: "coupled", Kind: Line, Length: 1e-3})
	require.NoError(t, err)
	assert.Empty(t, l.Widths)

	l, err = Plan(Spec{Name: "s", Kind: ShortEnd, Length: 1e-3})
	require.NoError(t, err)
	require.NotNil(t, l.End)
	assert.Equal(t, network.Short, l.End.Kind)

	_, err = Plan(Spec{Name: "bad", Kind: Line})
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}

func TestPlanCurveTaperStub(t *testing.T) {
	c, err := Plan(Spec{Name: "c", Kind: Curve, Scalars: map[string]float64{"W": 70e-6, "R": 150e-6, "Angle": 90}})
	require.NoError(t, err)
	assert.InDelta(t, 150e-6*math.Pi/2, c.SegmentLength, 1e-15)

	_, err = Plan(Spec{Name: "c", Kind: Curve, Scalars: map[string]float64{"R": 1}})
	assert.ErrorContains(t, err, "Angle")

	tp, err := Plan(Spec{Name: "t", Kind: Taper, Length: 1e-3, Taper: &TaperSpec{W1: 10e-6, W2: 30e-6, Samples: 3, Segments: 8}})
	require.NoError(t, err)
	assert.Len(t, tp.Widths, 3)
	assert.Equal(t, 8, tp.Segments)
	assert.InDelta(t, 1e-3/8, tp.SegmentLength, 1e-18)

	def, err := Plan(Spec{Name: "t", Kind: Taper, Length: 1e-3, Taper: &TaperSpec{W1: 10e-6, W2: 30e-6}})
	require.NoError(t, err)
	assert.Len(t, def.Widths, DefaultSegments)
	assert.Equal(t, DefaultSegments, def.Segments)

	st, err := Plan(Spec{Name: "r", Kind: RadialStub, Scalars: map[string]float64{"W": 70e-6, "Ro": 250e-6, "Theta": 45}})
	require.NoError(t, err)
	require.NotNil(t, st.End)
	assert.Equal(t, network.Open, st.End.Kind)
	assert.Equal(t, 70e-6, st.Widths[0])
	assert.InDelta(t, 250e-6*math.Pi/4, st.Widths[len(st.Widths)-1], 1e-15)
}

func TestExpand(t *testing.T) {
	raw := func(l float64) *rlgc.RawResult {
		return &rlgc.RawResult{L: [][]float64{{l}}, C: [][]float64{{1e-10}}, R: [][][]float64{{{0}}}, G: [][][]float64{{{0}}}}
	}
	l := &Layout{Segments: 3}
	out, err := l.Expand([]*rlgc.RawResult{raw(1e-7)})
	require.NoError(t, err)
	assert.Len(t, out, 3)

	out, err = l.Expand([]*rlgc.RawResult{raw(1e-7), raw(3e-7)})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.InDelta(t, 2e-7, out[1].L[0][0], 1e-20)

	_, err = l.Expand(nil)
	assert.Error(t, err)
}

func TestComposeTerminatesFarEnd(t *testing.T) {
	freqs := []float64{1e9}
	through := func(theta float64) *network.Block {
		v := cmplx.Exp(complex(0, -theta))
		return &network.Block{Freqs: freqs, Z0: 50, S: []*maths.Dense[complex128]{
			maths.NewDenseFrom([][]complex128{{0, v}, {v, 0}}),
		}}
	}
	l := &Layout{End: &network.Termination{Kind: network.Open}}
	out, err := l.Compose([]*network.Block{through(0.1), through(0.2)})
	require.NoError(t, err)
	require.Equal(t, 1, out.Ports())
	assert.InDelta(t, 0, cmplx.Abs(out.At(0, 0, 0)-cmplx.Exp(complex(0, -0.6))), 1e-14)

	plain := &Layout{}
	out, err = plain.Compose([]*network.Block{through(0.1), through(0.2)})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Ports())
}
