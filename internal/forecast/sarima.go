// Package forecast implements a seasonal ARIMA model for daily series with
// weekly seasonality. A SARIMA(p,d,q)(P,D,Q)[m] model combines non-seasonal
// AR/I/MA terms with seasonal ones at period m.
//
// Estimation is iterated conditional least squares (Hannan-Rissanen style):
// residuals start at zero, the ARMA regression is solved by ordinary least
// squares on the differenced series, residuals are recomputed and the fit is
// repeated until the coefficients settle. Forecasts invert the differencing
// recursively from the last observed values.
package forecast

import (
	"fmt"
	"math"
	"strings"
)

const (
	defaultMaxIterations = 25
	convergenceTol       = 1e-6
)

// Model is a SARIMA(p,d,q)(P,D,Q)[m] model with fixed orders.
type Model struct {
	P, D, Q    int
	SP, SD, SQ int
	M          int

	// Coefficients after Fit, laid out as AR(P), seasonal AR(SP), MA(Q),
	// seasonal MA(SQ).
	Coefficients []float64
	AIC          float64

	MaxIterations int

	series     []float64
	diffCoeffs []float64
	w          []float64
	residuals  []float64
	fitted     []float64
}

// New builds an unfitted model. Orders are fixed constants here, never
// searched.
func New(p, d, q, sp, sd, sq, m int) *Model {
	return &Model{
		P: p, D: d, Q: q,
		SP: sp, SD: sd, SQ: sq,
		M:             m,
		MaxIterations: defaultMaxIterations,
	}
}

// warmup is the number of differenced observations consumed by the longest
// lag in the regression.
func (md *Model) warmup() int {
	warm := md.P
	if md.Q > warm {
		warm = md.Q
	}
	if md.SP*md.M > warm {
		warm = md.SP * md.M
	}
	if md.SQ*md.M > warm {
		warm = md.SQ * md.M
	}
	return warm
}

func (md *Model) numCoefficients() int {
	return md.P + md.SP + md.Q + md.SQ
}

// Fit estimates the model coefficients on series. The series must be regular
// (one observation per day, no gaps); gap-free resampling is the caller's
// responsibility.
func (md *Model) Fit(series []float64) error {
	if md.M < 2 {
		return fmt.Errorf("seasonal period must be at least 2, got %d", md.M)
	}

	offset := md.D + md.SD*md.M
	minLen := offset + md.warmup() + md.numCoefficients() + md.M
	if len(series) < minLen {
		return fmt.Errorf("series too short: need at least %d observations, got %d", minLen, len(series))
	}

	md.series = append([]float64(nil), series...)
	md.diffCoeffs = differencingCoefficients(md.D, md.SD, md.M)
	md.w = md.difference(md.series)

	n := len(md.w)
	md.residuals = make([]float64, n)

	coeffs := make([]float64, md.numCoefficients())
	warm := md.warmup()

	for iter := 0; iter < md.maxIterations(); iter++ {
		rows := n - warm
		design := make([][]float64, rows)
		target := make([]float64, rows)

		for t := warm; t < n; t++ {
			design[t-warm] = md.regressorRow(md.w, md.residuals, t)
			target[t-warm] = md.w[t]
		}

		next, err := solveLeastSquares(design, target)
		if err != nil {
			return fmt.Errorf("least squares solve failed: %w", err)
		}

		for i := range next {
			if math.IsNaN(next[i]) || math.IsInf(next[i], 0) {
				return fmt.Errorf("fit diverged at iteration %d", iter)
			}
		}

		delta := maxAbsDiff(coeffs, next)
		coeffs = next
		md.Coefficients = coeffs
		md.recomputeResiduals()

		if delta < convergenceTol {
			break
		}
	}

	md.Coefficients = coeffs
	md.computeFitted()
	md.computeAIC()

	return nil
}

// Predict forecasts steps values past the end of the training series.
func (md *Model) Predict(steps int) ([]float64, error) {
	if md.Coefficients == nil {
		return nil, fmt.Errorf("model is not fitted")
	}
	if steps < 1 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}

	// Extend the differenced series and residuals recursively; future shocks
	// are zero.
	w := append([]float64(nil), md.w...)
	resid := append([]float64(nil), md.residuals...)
	x := append([]float64(nil), md.series...)

	forecasts := make([]float64, 0, steps)
	for s := 0; s < steps; s++ {
		t := len(w)
		row := md.regressorRow(w, resid, t)
		wHat := dot(md.Coefficients, row)

		w = append(w, wHat)
		resid = append(resid, 0)

		xHat := md.integrate(wHat, x, len(x))
		x = append(x, xHat)
		forecasts = append(forecasts, xHat)
	}

	return forecasts, nil
}

// FittedValues returns the one-step in-sample predictions aligned with the
// training series. The warm-up prefix, where no prediction is defined,
// carries the observed values.
func (md *Model) FittedValues() []float64 {
	return md.fitted
}

// Summary renders a short fit report, in the spirit of the usual SARIMA
// summary tables.
func (md *Model) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SARIMA(%d,%d,%d)(%d,%d,%d)[%d]\n", md.P, md.D, md.Q, md.SP, md.SD, md.SQ, md.M)
	fmt.Fprintf(&b, "observations: %d\n", len(md.series))
	names := md.coefficientNames()
	for i, c := range md.Coefficients {
		fmt.Fprintf(&b, "  %-10s %12.6f\n", names[i], c)
	}
	fmt.Fprintf(&b, "AIC: %.2f", md.AIC)
	return b.String()
}

func (md *Model) coefficientNames() []string {
	names := make([]string, 0, md.numCoefficients())
	for i := 1; i <= md.P; i++ {
		names = append(names, fmt.Sprintf("ar.L%d", i))
	}
	for i := 1; i <= md.SP; i++ {
		names = append(names, fmt.Sprintf("ar.S.L%d", i*md.M))
	}
	for i := 1; i <= md.Q; i++ {
		names = append(names, fmt.Sprintf("ma.L%d", i))
	}
	for i := 1; i <= md.SQ; i++ {
		names = append(names, fmt.Sprintf("ma.S.L%d", i*md.M))
	}
	return names
}

func (md *Model) maxIterations() int {
	if md.MaxIterations > 0 {
		return md.MaxIterations
	}
	return defaultMaxIterations
}

// regressorRow assembles the lagged terms for position t: AR lags, seasonal
// AR lags, MA lags, seasonal MA lags, in coefficient order.
func (md *Model) regressorRow(w, resid []float64, t int) []float64 {
	row := make([]float64, 0, md.numCoefficients())
	for i := 1; i <= md.P; i++ {
		row = append(row, at(w, t-i))
	}
	for i := 1; i <= md.SP; i++ {
		row = append(row, at(w, t-i*md.M))
	}
	for i := 1; i <= md.Q; i++ {
		row = append(row, at(resid, t-i))
	}
	for i := 1; i <= md.SQ; i++ {
		row = append(row, at(resid, t-i*md.M))
	}
	return row
}

func (md *Model) recomputeResiduals() {
	warm := md.warmup()
	for t := 0; t < len(md.w); t++ {
		if t < warm {
			md.residuals[t] = 0
			continue
		}
		row := md.regressorRow(md.w, md.residuals, t)
		md.residuals[t] = md.w[t] - dot(md.Coefficients, row)
	}
}

// difference applies the composed (1-B)^d (1-B^m)^D operator.
func (md *Model) difference(x []float64) []float64 {
	offset := len(md.diffCoeffs) - 1
	w := make([]float64, len(x)-offset)
	for t := offset; t < len(x); t++ {
		var v float64
		for j, c := range md.diffCoeffs {
			v += c * x[t-j]
		}
		w[t-offset] = v
	}
	return w
}

// integrate inverts the differencing: given the predicted differenced value
// at original-scale position t, reconstruct the level using the preceding
// values of x.
func (md *Model) integrate(wHat float64, x []float64, t int) float64 {
	v := wHat
	for j := 1; j < len(md.diffCoeffs); j++ {
		v -= md.diffCoeffs[j] * x[t-j]
	}
	return v
}

func (md *Model) computeFitted() {
	offset := len(md.diffCoeffs) - 1
	warm := md.warmup()

	md.fitted = append([]float64(nil), md.series...)
	for t := warm; t < len(md.w); t++ {
		row := md.regressorRow(md.w, md.residuals, t)
		wHat := dot(md.Coefficients, row)
		md.fitted[t+offset] = md.integrate(wHat, md.series, t+offset)
	}
}

func (md *Model) computeAIC() {
	warm := md.warmup()
	n := float64(len(md.w) - warm)

	var sse float64
	for t := warm; t < len(md.residuals); t++ {
		sse += md.residuals[t] * md.residuals[t]
	}
	if sse <= 0 || n <= 0 {
		md.AIC = math.Inf(-1)
		return
	}

	k := float64(md.numCoefficients() + 1)
	md.AIC = n*math.Log(sse/n) + 2*k
}

// Restore rebuilds a fitted model from persisted coefficients and the series
// they were estimated on. Residuals and fitted values are recomputed
// deterministically; no re-estimation happens.
func Restore(p, d, q, sp, sd, sq, m int, coefficients, series []float64) (*Model, error) {
	md := New(p, d, q, sp, sd, sq, m)
	if len(coefficients) != md.numCoefficients() {
		return nil, fmt.Errorf("expected %d coefficients, got %d", md.numCoefficients(), len(coefficients))
	}

	offset := d + sd*m
	if len(series) <= offset+md.warmup() {
		return nil, fmt.Errorf("series too short to restore model: %d observations", len(series))
	}

	md.series = append([]float64(nil), series...)
	md.diffCoeffs = differencingCoefficients(d, sd, m)
	md.w = md.difference(md.series)
	md.residuals = make([]float64, len(md.w))
	md.Coefficients = append([]float64(nil), coefficients...)
	md.recomputeResiduals()
	md.computeFitted()
	md.computeAIC()

	return md, nil
}

// differencingCoefficients expands (1-B)^d (1-B^m)^D into lag coefficients,
// index j holding the weight of x[t-j].
func differencingCoefficients(d, sd, m int) []float64 {
	coeffs := []float64{1}
	for i := 0; i < d; i++ {
		coeffs = polyMul(coeffs, lagPoly(1))
	}
	for i := 0; i < sd; i++ {
		coeffs = polyMul(coeffs, lagPoly(m))
	}
	return coeffs
}

// lagPoly returns 1 - B^lag as a coefficient slice.
func lagPoly(lag int) []float64 {
	p := make([]float64, lag+1)
	p[0] = 1
	p[lag] = -1
	return p
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

func at(s []float64, i int) float64 {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

func dot(a, b []float64) float64 {
	var v float64
	for i := range a {
		v += a[i] * b[i]
	}
	return v
}

func maxAbsDiff(a, b []float64) float64 {
	var max float64
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > max {
			max = d
		}
	}
	return max
}

// solveLeastSquares solves min ||A c - y|| via the normal equations with
// Gaussian elimination and partial pivoting.
func solveLeastSquares(a [][]float64, y []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, fmt.Errorf("empty design matrix")
	}
	k := len(a[0])

	// Normal equations: (A'A) c = A'y.
	ata := make([][]float64, k)
	aty := make([]float64, k)
	for i := 0; i < k; i++ {
		ata[i] = make([]float64, k)
	}
	for _, row := range a {
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				ata[i][j] += row[i] * row[j]
			}
		}
	}
	for r, row := range a {
		for i := 0; i < k; i++ {
			aty[i] += row[i] * y[r]
		}
	}

	// Ridge-style jitter on the diagonal keeps near-singular systems solvable
	// (constant series, all-zero lags).
	for i := 0; i < k; i++ {
		ata[i][i] += 1e-8
	}

	return gaussianSolve(ata, aty)
}

func gaussianSolve(m [][]float64, b []float64) ([]float64, error) {
	k := len(b)
	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		m[col], m[pivot] = m[pivot], m[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < k; r++ {
			factor := m[r][col] / m[col][col]
			for c := col; c < k; c++ {
				m[r][c] -= factor * m[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	solution := make([]float64, k)
	for r := k - 1; r >= 0; r-- {
		v := b[r]
		for c := r + 1; c < k; c++ {
			v -= m[r][c] * solution[c]
		}
		solution[r] = v / m[r][r]
	}
	return solution, nil
}
