package dae

// maxBDFOrder is the highest zero-stable BDF order.
const maxBDFOrder = 6

// bdfWeights computes the derivative weights of the order-k BDF over a
// non-uniform grid. nodes holds k+1 time points, nodes[0] being the new
// time and nodes[1..k] the retained history, newest first. The returned
// weights d satisfy
//
//	x'(nodes[0]) ~ d[0]*x(nodes[0]) + ... + d[k]*x(nodes[k]),
//
// obtained by differentiating the Lagrange interpolant at nodes[0].
// d[0] is the leading coefficient that scales the mass matrix in the
// iteration matrix d[0]*M - J. For uniform spacing the weights reduce to
// the classic fixed-step BDF tables.
func bdfWeights(nodes []float64) []float64 {
	k := len(nodes) - 1
	d := make([]float64, k+1)
	for m := 1; m <= k; m++ {
		d[0] += 1 / (nodes[0] - nodes[m])
	}
	for j := 1; j <= k; j++ {
		num, den := 1.0, 1.0
		for m := 0; m <= k; m++ {
			if m == j {
				continue
			}
			if m != 0 {
				num *= nodes[0] - nodes[m]
			}
			den *= nodes[j] - nodes[m]
		}
		d[j] = num / den
	}
	return d
}

// predictorWeights computes the Lagrange extrapolation weights that
// evaluate the polynomial through the history points at tNew:
//
//	x_pred(tNew) = p[0]*x(times[0]) + ... + p[m-1]*x(times[m-1]).
//
// With a single history point this degenerates to constant extrapolation.
func predictorWeights(tNew float64, times []float64) []float64 {
	p := make([]float64, len(times))
	for j := range times {
		w := 1.0
		for m := range times {
			if m == j {
				continue
			}
			w *= (tNew - times[m]) / (times[j] - times[m])
		}
		p[j] = w
	}
	return p
}
