package cielab

import (
	"loomquant/pattern"

	"gonum.org/v1/gonum/mat"
)

var toXYZMatrix = mat.NewDense(3, 3, toXYZ[:])

// ToLabBatch converts a slice of colors at once: the linearized pixels form an
// n x 3 matrix that is multiplied by the transposed primaries matrix in one step.
func ToLabBatch(pix []pattern.RGB) []Lab {
	n := len(pix)
	if n == 0 {
		return nil
	}

	lin := make([]float64, n*3)
	for i, c := range pix {
		lin[i*3] = linearTable[c.R]
		lin[i*3+1] = linearTable[c.G]
		lin[i*3+2] = linearTable[c.B]
	}

	var xyz mat.Dense
	xyz.Mul(mat.NewDense(n, 3, lin), toXYZMatrix.T())

	raw := xyz.RawMatrix()
	out := make([]Lab, n)
	for i := range n {
		row := raw.Data[i*raw.Stride : i*raw.Stride+3]
		out[i] = labFromXYZ(row[0], row[1], row[2])
	}
	return out
}
