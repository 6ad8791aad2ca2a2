package sparse

import "fmt"

// AddScaled computes alpha*a + beta*b as a new matrix. The result's
// sparsity pattern is the union of the two input patterns per row; an
// entry present in only one input keeps its own value times that input's
// coefficient. Both inputs must share the same dimension. The operation
// is deterministic and leaves the inputs untouched.
//
// The DAE iteration matrix c*M - J is AddScaled(c, M, -1, J).
func AddScaled(alpha float64, a *Matrix, beta float64, b *Matrix) (*Matrix, error) {
	if a.n != b.n {
		return nil, fmt.Errorf("%w: cannot merge %dx%d with %dx%d", ErrMalformed, a.n, a.n, b.n, b.n)
	}
	n := a.n
	out := &Matrix{
		n:        n,
		values:   make([]float64, 0, a.NNZ()+b.NNZ()),
		cols:     make([]int, 0, a.NNZ()+b.NNZ()),
		rowStart: make([]int, 1, n+1),
	}
	for r := 0; r < n; r++ {
		ac, av := a.Row(r)
		bc, bv := b.Row(r)
		i, j := 0, 0
		for i < len(ac) || j < len(bc) {
			switch {
			case j >= len(bc) || (i < len(ac) && ac[i] < bc[j]):
				out.cols = append(out.cols, ac[i])
				out.values = append(out.values, alpha*av[i])
				i++
			case i >= len(ac) || bc[j] < ac[i]:
				out.cols = append(out.cols, bc[j])
				out.values = append(out.values, beta*bv[j])
				j++
			default: // same column in both
				out.cols = append(out.cols, ac[i])
				out.values = append(out.values, alpha*av[i]+beta*bv[j])
				i++
				j++
			}
		}
		out.rowStart = append(out.rowStart, len(out.values))
	}
	return out, nil
}
