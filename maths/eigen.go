package maths

import (
	"errors"
	"math"
	"math/cmplx"
)

// Eigen 计算一般复方阵的特征值与右特征向量：A·V = V·diag(values)
//
// 算法步骤:
//  1. Householder 变换化为上 Hessenberg 形 H = Q₀ᴴ·A·Q₀
//  2. 带 Wilkinson 位移的 QR 迭代（Givens 旋转）得到 Schur 形 T = Qᴴ·A·Q
//  3. 对上三角 T 回代求特征向量 X，V = Q·X，各列归一化为单位2-范数
//
// 重根且不可对角化时 V 接近奇异，由调用方在求逆时发现。
func Eigen(a *Dense[complex128]) ([]complex128, *Dense[complex128], error) {
	if !a.IsSquare() {
		return nil, nil, errors.New("eigen: matrix must be square")
	}
	n := a.Rows()
	if n == 0 {
		return nil, nil, errors.New("eigen: empty matrix")
	}
	if !a.IsFinite() {
		return nil, nil, errors.New("eigen: matrix has non-finite entries")
	}
	if n == 1 {
		return []complex128{a.Get(0, 0)}, Identity[complex128](1), nil
	}

	h := a.Clone()
	q := Identity[complex128](n)
	hessenberg(h, q)
	if err := schur(h, q); err != nil {
		return nil, nil, err
	}

	values := make([]complex128, n)
	for i := 0; i < n; i++ {
		values[i] = h.data[i*n+i]
	}
	x := triangularEigenvectors(h)
	v := q.Mul(x)
	for k := 0; k < n; k++ {
		norm := 0.0
		for i := 0; i < n; i++ {
			e := v.data[i*n+k]
			norm += real(e)*real(e) + imag(e)*imag(e)
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			v.data[i*n+k] /= complex(norm, 0)
		}
	}
	return values, v, nil
}

// hessenberg 原位化为上 Hessenberg 形，并把变换累积到 q 的右侧
func hessenberg(h, q *Dense[complex128]) {
	n := h.rows
	for k := 0; k < n-2; k++ {
		m := n - k - 1
		v := make([]complex128, m)
		tail := 0.0
		for i := 0; i < m; i++ {
			v[i] = h.data[(k+1+i)*n+k]
			if i > 0 {
				tail += real(v[i])*real(v[i]) + imag(v[i])*imag(v[i])
			}
		}
		if tail == 0 {
			continue
		}
		x0 := v[0]
		norm := math.Sqrt(tail + real(x0)*real(x0) + imag(x0)*imag(x0))
		phase := complex(1, 0)
		if x0 != 0 {
			phase = x0 / complex(cmplx.Abs(x0), 0)
		}
		// v = x + e^{iθ}‖x‖e₁，避免相消
		v[0] = x0 + phase*complex(norm, 0)
		vv := 0.0
		for _, e := range v {
			vv += real(e)*real(e) + imag(e)*imag(e)
		}
		beta := complex(2/vv, 0)

		// 左乘 (I - β v vᴴ)
		for j := 0; j < n; j++ {
			var w complex128
			for i := 0; i < m; i++ {
				w += cmplx.Conj(v[i]) * h.data[(k+1+i)*n+j]
			}
			w *= beta
			for i := 0; i < m; i++ {
				h.data[(k+1+i)*n+j] -= v[i] * w
			}
		}
		// 右乘 (I - β v vᴴ)
		for _, mat := range []*Dense[complex128]{h, q} {
			for i := 0; i < n; i++ {
				var w complex128
				for l := 0; l < m; l++ {
					w += mat.data[i*n+k+1+l] * v[l]
				}
				w *= beta
				for l := 0; l < m; l++ {
					mat.data[i*n+k+1+l] -= w * cmplx.Conj(v[l])
				}
			}
		}
		for i := k + 2; i < n; i++ {
			h.data[i*n+k] = 0
		}
	}
}

// givens 构造旋转 G = [[c, s], [-s̄, c]]（c 为实数），使 G·[x; y] = [r; 0]
func givens(x, y complex128) (float64, complex128) {
	ax, ay := cmplx.Abs(x), cmplx.Abs(y)
	if ay == 0 {
		return 1, 0
	}
	if ax == 0 {
		return 0, 1
	}
	norm := math.Hypot(ax, ay)
	return ax / norm, (x / complex(ax, 0)) * cmplx.Conj(y) / complex(norm, 0)
}

// schur 对上 Hessenberg 矩阵做位移QR迭代直至上三角，旋转累积到 q
func schur(h, q *Dense[complex128]) error {
	n := h.rows
	norm := h.MaxAbs()
	if norm == 0 {
		return nil
	}
	hi := n - 1
	iter, total := 0, 0
	cs := make([]float64, n)
	ss := make([]complex128, n)
	at := func(i, j int) complex128 { return h.data[i*n+j] }

	for hi > 0 {
		// 寻找可忽略的次对角元
		l := hi
		for ; l > 0; l-- {
			s := cmplx.Abs(at(l-1, l-1)) + cmplx.Abs(at(l, l))
			if s == 0 {
				s = norm
			}
			if cmplx.Abs(at(l, l-1)) <= Epsilon*s {
				h.data[l*n+l-1] = 0
				break
			}
		}
		if l == hi {
			hi--
			iter = 0
			continue
		}
		iter++
		total++
		if total > 100*n {
			return ErrNoConvergence
		}

		// Wilkinson 位移：取尾部2×2块中更接近 h[hi][hi] 的特征值
		var mu complex128
		if iter%11 == 0 {
			mu = at(hi, hi) + complex(cmplx.Abs(at(hi, hi-1)), 0)
		} else {
			a, b, c, d := at(hi-1, hi-1), at(hi-1, hi), at(hi, hi-1), at(hi, hi)
			tr := (a + d) / 2
			disc := cmplx.Sqrt((a-d)*(a-d)/4 + b*c)
			mu1, mu2 := tr+disc, tr-disc
			mu = mu1
			if cmplx.Abs(mu2-d) < cmplx.Abs(mu1-d) {
				mu = mu2
			}
		}

		for i := l; i <= hi; i++ {
			h.data[i*n+i] -= mu
		}
		// H - μI = QR：自上而下消去次对角元
		for k := l; k < hi; k++ {
			c, s := givens(at(k, k), at(k+1, k))
			cs[k], ss[k] = c, s
			cc := complex(c, 0)
			for j := k; j < n; j++ {
				x, y := at(k, j), at(k+1, j)
				h.data[k*n+j] = cc*x + s*y
				h.data[(k+1)*n+j] = -cmplx.Conj(s)*x + cc*y
			}
		}
		// RQ：右乘 Gᴴ，同时累积到 q
		for k := l; k < hi; k++ {
			cc, s := complex(cs[k], 0), ss[k]
			for i := 0; i <= hi && i <= k+1; i++ {
				x, y := at(i, k), at(i, k+1)
				h.data[i*n+k] = x*cc + y*cmplx.Conj(s)
				h.data[i*n+k+1] = -x*s + y*cc
			}
			for i := 0; i < n; i++ {
				x, y := q.data[i*n+k], q.data[i*n+k+1]
				q.data[i*n+k] = x*cc + y*cmplx.Conj(s)
				q.data[i*n+k+1] = -x*s + y*cc
			}
		}
		for i := l; i <= hi; i++ {
			h.data[i*n+i] += mu
		}
	}
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			h.data[i*n+j] = 0
		}
	}
	return nil
}

// triangularEigenvectors 上三角矩阵 T 的特征向量（列），X[k][k] = 1
func triangularEigenvectors(t *Dense[complex128]) *Dense[complex128] {
	n := t.rows
	x := NewDenseMatrix[complex128](n, n)
	smallest := math.SmallestNonzeroFloat64 / Epsilon
	for k := n - 1; k >= 0; k-- {
		lambda := t.data[k*n+k]
		smin := math.Max(Epsilon*cmplx.Abs(lambda), smallest)
		x.data[k*n+k] = 1
		for i := k - 1; i >= 0; i-- {
			var sum complex128
			for j := i + 1; j <= k; j++ {
				sum += t.data[i*n+j] * x.data[j*n+k]
			}
			d := t.data[i*n+i] - lambda
			if cmplx.Abs(d) < smin {
				d = complex(smin, 0)
			}
			x.data[i*n+k] = -sum / d
		}
	}
	return x
}
