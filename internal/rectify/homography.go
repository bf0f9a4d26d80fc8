package rectify

import (
	"errors"
	"math"

	"github.com/MeKo-Tech/docscan/internal/geometry"
)

// PivotTolerance is the smallest pivot magnitude accepted while solving the
// homography system.
const PivotTolerance = 1e-10

// ErrSingularTransform is returned when the corner correspondences do not
// determine a projective transform.
var ErrSingularTransform = errors.New("singular perspective transform")

// Homography is a row-major 3×3 projective matrix with H[8] = 1. It maps
// destination-rectangle coordinates to source-quad coordinates.
type Homography [9]float64

// Apply maps (x, y) through the homography.
func (h Homography) Apply(x, y float64) (float64, float64) {
	w := h[6]*x + h[7]*y + h[8]
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
}

// DestinationRect returns the corners (0,0), (W-1,0), (W-1,H-1), (0,H-1).
func DestinationRect(w, h int) geometry.Quad {
	return geometry.RectQuad(float64(w-1), float64(h-1))
}

// ComputeHomography solves for the transform taking the dstW×dstH output
// rectangle onto src. Each correspondence between a rectangle corner (X, Y)
// and a quad corner (x, y) contributes the DLT rows
//
//	[-X, -Y, -1, 0, 0, 0, xX, xY, x]
//	[0, 0, 0, -X, -Y, -1, yX, yY, y]
//
// and fixing h8 = 1 leaves an 8×8 system.
func ComputeHomography(src geometry.Quad, dstW, dstH int) (Homography, error) {
	dst := DestinationRect(dstW, dstH)

	var a [8][9]float64
	for i := 0; i < 4; i++ {
		X, Y := dst[i].X, dst[i].Y
		x, y := src[i].X, src[i].Y
		a[2*i] = [9]float64{-X, -Y, -1, 0, 0, 0, x * X, x * Y, x}
		a[2*i+1] = [9]float64{0, 0, 0, -X, -Y, -1, y * X, y * Y, y}
	}

	var m [8][8]float64
	var b [8]float64
	for r := range a {
		copy(m[r][:], a[r][:8])
		b[r] = -a[r][8]
	}

	sol, err := solve8x8(m, b)
	if err != nil {
		return Homography{}, err
	}
	var h Homography
	copy(h[:8], sol[:])
	h[8] = 1
	return h, nil
}

// solve8x8 runs Gaussian elimination with partial pivoting followed by back
// substitution.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, error) {
	for col := 0; col < 8; col++ {
		swapRows(&a, &b, col, findPivotRow(a, col))
		if math.Abs(a[col][col]) < PivotTolerance {
			return [8]float64{}, ErrSingularTransform
		}
		eliminateBelow(&a, &b, col)
	}

	var x [8]float64
	for i := 7; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < 8; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x, nil
}

// findPivotRow returns the row at or below col with the largest absolute
// value in column col. Earlier rows win ties.
func findPivotRow(a [8][8]float64, col int) int {
	pivotRow := col
	for r := col + 1; r < 8; r++ {
		if math.Abs(a[r][col]) > math.Abs(a[pivotRow][col]) {
			pivotRow = r
		}
	}
	return pivotRow
}

func swapRows(a *[8][8]float64, b *[8]float64, r1, r2 int) {
	if r1 == r2 {
		return
	}
	a[r1], a[r2] = a[r2], a[r1]
	b[r1], b[r2] = b[r2], b[r1]
}

func eliminateBelow(a *[8][8]float64, b *[8]float64, col int) {
	for r := col + 1; r < 8; r++ {
		factor := a[r][col] / a[col][col]
		if factor == 0 {
			continue
		}
		for c := col; c < 8; c++ {
			a[r][c] -= factor * a[col][c]
		}
		b[r] -= factor * b[col]
	}
}
