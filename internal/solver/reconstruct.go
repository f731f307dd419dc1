package solver

import (
	"math"

	"github.com/j0hanj0han/cemantix/internal/models"
	"gonum.org/v1/gonum/mat"
)

// minEstimateNorm is the smallest least-squares solution norm accepted as a direction.
const minEstimateNorm = 1e-9

// Reconstruct estimates the target's unit direction from the ledger. Each usable probe (similarity
// above floor, word present in space) contributes one row of X and one entry of s; the minimum-norm
// least-squares solution of X·t = s is normalized and returned with the number of rows used.
//
// Returns ErrInsufficientData when fewer than minProbes rows are usable or the system carries no
// direction.
func Reconstruct(space EmbeddingSpace, probes []models.Probe, floor float64, minProbes int) ([]float32, int, error) {
	dims := space.Dimensions()
	var (
		rows []float64
		sims []float64
	)
	for _, p := range probes {
		if p.Similarity <= floor {
			continue
		}
		vec, ok := space.Lookup(p.Word)
		if !ok || len(vec) != dims {
			continue
		}
		for _, v := range vec {
			rows = append(rows, float64(v))
		}
		sims = append(sims, p.Similarity)
	}
	n := len(sims)
	if n == 0 || n < minProbes {
		return nil, n, ErrInsufficientData
	}

	x := mat.NewDense(n, dims, rows)
	s := mat.NewVecDense(n, sims)

	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return nil, n, ErrInsufficientData
	}
	// Singular values below eps*max(n,dims) of the largest are treated as zero.
	rcond := math.Nextafter(1, 2) - 1
	rank := svd.Rank(rcond * float64(max(n, dims)))
	if rank == 0 {
		return nil, n, ErrInsufficientData
	}

	var t mat.VecDense
	svd.SolveVecTo(&t, s, rank)

	norm := mat.Norm(&t, 2)
	if norm <= minEstimateNorm || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, n, ErrInsufficientData
	}
	estimate := make([]float32, dims)
	for i := range estimate {
		estimate[i] = float32(t.AtVec(i) / norm)
	}
	return estimate, n, nil
}
