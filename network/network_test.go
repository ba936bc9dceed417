package network

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/maths"
)

var testFreqs = []float64{1e9, 2e9, 3e9}

// delay 匹配的理想延迟线：S21 = S12 = e^{-jθ}，θ 与频率成正比
func delay(theta float64) *Block {
	s := make([]*maths.Dense[complex128], len(testFreqs))
	for k, f := range testFreqs {
		t := cmplx.Exp(complex(0, -theta*f/1e9))
		s[k] = maths.NewDenseFrom([][]complex128{{0, t}, {t, 0}})
	}
	return &Block{Freqs: append([]float64(nil), testFreqs...), S: s, Z0: 50}
}

// mismatched 有反射的非对称二端口
func mismatched(seed float64) *Block {
	s := make([]*maths.Dense[complex128], len(testFreqs))
	for k := range testFreqs {
		p := seed + float64(k)
		s[k] = maths.NewDenseFrom([][]complex128{
			{complex(0.2*math.Cos(p), 0.1), complex(0.7, -0.2*math.Sin(p))},
			{complex(0.6, 0.1*p), complex(-0.3, 0.05*p)},
		})
	}
	return &Block{Freqs: append([]float64(nil), testFreqs...), S: s, Z0: 50}
}

// fourPort 四端口（2 导体耦合）
func fourPort(seed float64) *Block {
	s := make([]*maths.Dense[complex128], len(testFreqs))
	for k := range testFreqs {
		p := seed + 0.3*float64(k)
		m := maths.NewDenseMatrix[complex128](4, 4)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				v := 0.1 * complex(math.Sin(p+float64(3*i+j)), math.Cos(p*float64(i+1)-float64(j)))
				if (i+2)%4 == j || (j+2)%4 == i {
					v += complex(0.6*math.Cos(p), -0.6*math.Sin(p))
				}
				m.Set(i, j, v)
			}
		}
		s[k] = m
	}
	return &Block{Freqs: append([]float64(nil), testFreqs...), S: s, Z0: 50}
}

func assertBlocksEqual(t *testing.T, want, got *Block, tol float64) {
	t.Helper()
	require.Equal(t, want.Ports(), got.Ports())
	require.Equal(t, want.Len(), got.Len())
	for k := range want.S {
		for i := 0; i < want.Ports(); i++ {
			for j := 0; j < want.Ports(); j++ {
				d := cmplx.Abs(want.At(i, j, k) - got.At(i, j, k))
				assert.LessOrEqual(t, d, tol, "S%d%d at f[%d]: want %v got %v", i+1, j+1, k, want.At(i, j, k), got.At(i, j, k))
			}
		}
	}
}

func TestCascadeDelayLines(t *testing.T) {
	got, err := Cascade(delay(0.3), delay(0.5))
	require.NoError(t, err)
	assertBlocksEqual(t, delay(0.8), got, 1e-14)
}

func TestCascadeSingleBlockIsCopy(t *testing.T) {
	a := mismatched(0.1)
	got, err := Cascade(a)
	require.NoError(t, err)
	assertBlocksEqual(t, a, got, 0)
	got.S[0].Set(0, 0, 42)
	assert.NotEqual(t, complex128(42), a.At(0, 0, 0))
}

func TestCascadeReflectiveTwoPort(t *testing.T) {
	a, b := mismatched(0.2), mismatched(1.1)
	got, err := Cascade(a, b)
	require.NoError(t, err)
	for k := range testFreqs {
		a11, a12, a21, a22 := a.At(0, 0, k), a.At(0, 1, k), a.At(1, 0, k), a.At(1, 1, k)
		b11, b12, b21, b22 := b.At(0, 0, k), b.At(0, 1, k), b.At(1, 0, k), b.At(1, 1, k)
		d := 1 - a22*b11
		assert.InDelta(t, 0, cmplx.Abs(got.At(0, 0, k)-(a11+a12*a21*b11/d)), 1e-14)
		assert.InDelta(t, 0, cmplx.Abs(got.At(1, 0, k)-a21*b21/d), 1e-14)
		assert.InDelta(t, 0, cmplx.Abs(got.At(0, 1, k)-a12*b12/d), 1e-14)
		assert.InDelta(t, 0, cmplx.Abs(got.At(1, 1, k)-(b22+b21*b12*a22/d)), 1e-14)
	}
}

func TestCascadeAssociative(t *testing.T) {
	for name, mk := range map[string]func(float64) *Block{"2-port": mismatched, "4-port": fourPort} {
		t.Run(name, func(t *testing.T) {
			a, b, c := mk(0.1), mk(0.7), mk(1.9)
			all, err := Cascade(a, b, c)
			require.NoError(t, err)
			ab, err := Cascade(a, b)
			require.NoError(t, err)
			left, err := Cascade(ab, c)
			require.NoError(t, err)
			bc, err := Cascade(b, c)
			require.NoError(t, err)
			right, err := Cascade(a, bc)
			require.NoError(t, err)
			assertBlocksEqual(t, all, left, 1e-12)
			assertBlocksEqual(t, all, right, 1e-12)
		})
	}
}

func TestCascadeMismatch(t *testing.T) {
	_, err := Cascade(delay(0.1), fourPort(0.2))
	assert.True(t, errs.IsKind(err, errs.PortCountMismatch))

	short := delay(0.1)
	short.Freqs, short.S = short.Freqs[:2], short.S[:2]
	_, err = Cascade(delay(0.1), short)
	assert.True(t, errs.IsKind(err, errs.PortCountMismatch))

	shifted := delay(0.1)
	shifted.Freqs = []float64{1e9, 2e9, 4e9}
	_, err = Cascade(delay(0.1), shifted)
	assert.True(t, errs.IsKind(err, errs.PortCountMismatch))

	_, err = Cascade()
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}

func TestCascadeSingularInterconnection(t *testing.T) {
	// 两个全反射面相对，I - A22·B11 = 0
	mirror := func(g complex128) *Block {
		b := delay(0)
		for k := range b.S {
			b.S[k] = maths.NewDenseFrom([][]complex128{{0, 0}, {0, g}})
		}
		return b
	}
	left := mirror(1)
	right := delay(0)
	for k := range right.S {
		right.S[k] = maths.NewDenseFrom([][]complex128{{1, 0}, {0, 0}})
	}
	_, err := Cascade(left, right)
	assert.True(t, errs.IsKind(err, errs.SingularNetwork))
}

func TestTerminateMatchedKeepsS11(t *testing.T) {
	a := mismatched(0.4)
	got, err := Terminate(a, []Termination{{Kind: Port}, {Kind: Match}})
	require.NoError(t, err)
	require.Equal(t, 1, got.Ports())
	for k := range testFreqs {
		assert.Equal(t, a.At(0, 0, k), got.At(0, 0, k))
	}
}

func TestOnePortOpenAndShort(t *testing.T) {
	line := delay(0.4)
	open, err := OnePort(line, 1)
	require.NoError(t, err)
	short, err := OnePort(line, -1)
	require.NoError(t, err)
	for k, f := range testFreqs {
		round := cmplx.Exp(complex(0, -2*0.4*f/1e9))
		assert.InDelta(t, 0, cmplx.Abs(open.At(0, 0, k)-round), 1e-14)
		assert.InDelta(t, 0, cmplx.Abs(short.At(0, 0, k)+round), 1e-14)
	}

	_, err = OnePort(fourPort(0), 1)
	assert.True(t, errs.IsKind(err, errs.PortCountMismatch))
}

func TestOnePortMatchesScalarFormula(t *testing.T) {
	a := mismatched(0.9)
	gamma := complex(0.3, -0.4)
	got, err := OnePort(a, gamma)
	require.NoError(t, err)
	for k := range testFreqs {
		s11, s12, s21, s22 := a.At(0, 0, k), a.At(0, 1, k), a.At(1, 0, k), a.At(1, 1, k)
		want := s11 + s12*s21*gamma/(1-s22*gamma)
		assert.InDelta(t, 0, cmplx.Abs(got.At(0, 0, k)-want), 1e-14)
	}
}

func TestTerminateRenumbersPorts(t *testing.T) {
	b := fourPort(0.5)
	got, err := Terminate(b, []Termination{{Kind: Match}, {Kind: Port}, {Kind: Match}, {Kind: Port}})
	require.NoError(t, err)
	require.Equal(t, 2, got.Ports())
	for k := range testFreqs {
		assert.Equal(t, b.At(1, 1, k), got.At(0, 0, k))
		assert.Equal(t, b.At(1, 3, k), got.At(0, 1, k))
		assert.Equal(t, b.At(3, 1, k), got.At(1, 0, k))
		assert.Equal(t, b.At(3, 3, k), got.At(1, 1, k))
	}
}

func TestTerminateSequentialEqualsJoint(t *testing.T) {
	b := fourPort(1.3)
	joint, err := Terminate(b, []Termination{{Kind: Port}, {Kind: Open}, {Kind: Port}, {Kind: Short}})
	require.NoError(t, err)
	step, err := Terminate(b, []Termination{{Kind: Port}, {Kind: Open}, {Kind: Port}, {Kind: Port}})
	require.NoError(t, err)
	step, err = Terminate(step, []Termination{{Kind: Port}, {Kind: Port}, {Kind: Short}})
	require.NoError(t, err)
	assertBlocksEqual(t, joint, step, 1e-12)
}

func TestTerminateErrors(t *testing.T) {
	_, err := Terminate(delay(0.1), []Termination{{Kind: Port}})
	assert.True(t, errs.IsKind(err, errs.TerminationCountMismatch))

	_, err = Terminate(delay(0.1), []Termination{{Kind: Open}, {Kind: Short}})
	assert.True(t, errs.IsKind(err, errs.InvalidInput))

	same, err := Terminate(delay(0.1), []Termination{{Kind: Port}, {Kind: Port}})
	require.NoError(t, err)
	assertBlocksEqual(t, delay(0.1), same, 0)
}

func TestTerminationReflection(t *testing.T) {
	assert.Equal(t, complex128(0), Termination{Kind: Match}.Reflection(50))
	assert.Equal(t, complex128(1), Termination{Kind: Open}.Reflection(50))
	assert.Equal(t, complex128(-1), Termination{Kind: Short}.Reflection(50))
	assert.InDelta(t, 1.0/3, real(Termination{Kind: Load, Impedance: 100}.Reflection(50)), 1e-15)
	assert.Equal(t, complex128(-1), Termination{Kind: Load, Impedance: 0}.Reflection(50))
	assert.Equal(t, complex(0.5, 0.5), Termination{Kind: Reflect, Gamma: complex(0.5, 0.5)}.Reflection(50))
}

func TestParsePorts(t *testing.T) {
	terms, err := ParsePorts([]string{"port", "r", "i", "s", "load:75", "Open"})
	require.NoError(t, err)
	kinds := make([]TermKind, len(terms))
	for i, term := range terms {
		kinds[i] = term.Kind
	}
	assert.Equal(t, []TermKind{Port, Match, Open, Short, Load, Open}, kinds)
	assert.Equal(t, complex(75, 0), terms[4].Impedance)

	_, err = ParsePorts([]string{"port", "d"})
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
	assert.Contains(t, err.Error(), "port 2")

	_, err = ParsePorts([]string{"x"})
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}

func TestCompositeReduce(t *testing.T) {
	c := &Composite{
		Name:         "stub",
		Blocks:       []*Block{delay(0.2), delay(0.3)},
		Terminations: []Termination{{Kind: Port}, {Kind: Short}},
	}
	got, err := c.Reduce()
	require.NoError(t, err)
	for k, f := range testFreqs {
		want := -cmplx.Exp(complex(0, -2*0.5*f/1e9))
		assert.InDelta(t, 0, cmplx.Abs(got.At(0, 0, k)-want), 1e-14)
	}

	_, err = (&Composite{Name: "empty"}).Reduce()
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}

func TestDiagnostics(t *testing.T) {
	line := delay(0.7)
	assert.InDelta(t, 0, Reciprocity(line), 1e-15)
	assert.InDelta(t, 0, PassivityDeviation(line), 1e-15)
	assert.Greater(t, Reciprocity(mismatched(0.3)), 0.1)
}

func TestValidate(t *testing.T) {
	_, err := NewBlock(nil, nil, 50)
	assert.True(t, errs.IsKind(err, errs.InvalidInput))

	b := delay(0.1)
	_, err = NewBlock(b.Freqs, b.S[:2], 50)
	assert.True(t, errs.IsKind(err, errs.PortCountMismatch))

	_, err = NewBlock(b.Freqs, b.S, -1)
	assert.True(t, errs.IsKind(err, errs.InvalidInput))

	_, err = NewBlock([]float64{1, 1, 2}, b.S, 50)
	assert.True(t, errs.IsKind(err, errs.InvalidInput))
}
