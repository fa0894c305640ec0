package data

import "gonum.org/v1/gonum/mat"

// Batch is a group of examples stacked into parallel input and target rows.
// Rows share storage with the dataset and must not be modified.
type Batch struct {
	// Indices are the dataset positions of the rows, in row order.
	Indices []int
	// Inputs is (B, T).
	Inputs [][]int32
	// Targets is (B, T).
	Targets [][]int32
}

// Size returns the number of examples in the batch.
func (b Batch) Size() int {
	return len(b.Indices)
}

// SeqLength returns the number of tokens per row.
func (b Batch) SeqLength() int {
	if len(b.Inputs) == 0 {
		return 0
	}
	return len(b.Inputs[0])
}

// Flat returns freshly allocated row-major copies of the inputs and targets,
// each of length B*T.
func (b Batch) Flat() (inputs, targets []int32) {
	B, T := b.Size(), b.SeqLength()
	inputs, targets = make([]int32, 0, B*T), make([]int32, 0, B*T)
	for row := range b.Inputs {
		inputs = append(inputs, b.Inputs[row]...)
		targets = append(targets, b.Targets[row]...)
	}
	return inputs, targets
}

// Dense returns the inputs and targets as B x T matrices. It returns nil
// matrices for an empty batch.
func (b Batch) Dense() (inputs, targets *mat.Dense) {
	B, T := b.Size(), b.SeqLength()
	if B == 0 || T == 0 {
		return nil, nil
	}
	inputs, targets = mat.NewDense(B, T, nil), mat.NewDense(B, T, nil)
	for row := range b.Inputs {
		for col := 0; col < T; col++ {
			inputs.Set(row, col, float64(b.Inputs[row][col]))
			targets.Set(row, col, float64(b.Targets[row][col]))
		}
	}
	return inputs, targets
}
