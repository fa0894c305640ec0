// Package data turns token id streams into windowed training examples and
// groups them into batches.
package data

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when an example index is outside the dataset.
	ErrOutOfRange = errors.New("index out of range")
	// ErrInvalidConfig is returned for non-positive window or batch parameters.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Example is one training pair. Target is Input shifted one position to the
// right within the source sequence.
type Example struct {
	Input  []int32
	Target []int32
}

// Dataset is a fixed, random-access collection of examples cut from a single
// token id sequence with a sliding window.
//
// A Dataset is immutable once built and safe for concurrent reads. Slices
// handed out by Get share the dataset's storage and must not be modified.
type Dataset struct {
	maxLength int
	stride    int
	tokens    int
	examples  []Example
}

// NewDataset windows ids into examples of maxLength tokens, starting a new
// window every stride tokens. A window starting at offset i is kept only when
// i < len(ids)-maxLength, so its target, which ends at ids[i+maxLength], stays
// in bounds. Sequences no longer than maxLength produce an empty dataset.
func NewDataset(ids []int32, maxLength, stride int) (*Dataset, error) {
	if err := validateWindow(maxLength, stride); err != nil {
		return nil, err
	}
	ds := &Dataset{
		maxLength: maxLength,
		stride:    stride,
		tokens:    len(ids),
	}
	n := windowCount(len(ids), maxLength, stride)
	if n == 0 {
		return ds, nil
	}
	// One backing array holds every window: inputs first, then targets.
	memory := make([]int32, 2*n*maxLength)
	inputs, targets := memory[:n*maxLength], memory[n*maxLength:]
	ds.examples = make([]Example, 0, n)
	for i := 0; i < len(ids)-maxLength; i += stride {
		k := len(ds.examples) * maxLength
		input := inputs[k : k+maxLength : k+maxLength]
		target := targets[k : k+maxLength : k+maxLength]
		copy(input, ids[i:i+maxLength])
		copy(target, ids[i+1:i+maxLength+1])
		ds.examples = append(ds.examples, Example{Input: input, Target: target})
	}
	return ds, nil
}

// Len returns the number of examples.
func (ds *Dataset) Len() int {
	return len(ds.examples)
}

// Get returns the example at index.
func (ds *Dataset) Get(index int) (Example, error) {
	if index < 0 || index >= len(ds.examples) {
		return Example{}, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, len(ds.examples))
	}
	return ds.examples[index], nil
}

// MaxLength returns the number of tokens per window.
func (ds *Dataset) MaxLength() int {
	return ds.maxLength
}

// Stride returns the step between consecutive window offsets.
func (ds *Dataset) Stride() int {
	return ds.stride
}

// Tokens returns the length of the sequence the dataset was cut from.
func (ds *Dataset) Tokens() int {
	return ds.tokens
}

// Offset returns the position in the source sequence where example index
// starts.
func (ds *Dataset) Offset(index int) (int, error) {
	if index < 0 || index >= len(ds.examples) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, len(ds.examples))
	}
	return index * ds.stride, nil
}

func validateWindow(maxLength, stride int) error {
	if maxLength <= 0 {
		return fmt.Errorf("%w: max length must be positive, got %d", ErrInvalidConfig, maxLength)
	}
	if stride <= 0 {
		return fmt.Errorf("%w: stride must be positive, got %d", ErrInvalidConfig, stride)
	}
	return nil
}

// windowCount is the number of offsets i = 0, stride, ... with i < n-maxLength.
func windowCount(n, maxLength, stride int) int {
	if n <= maxLength {
		return 0
	}
	return (n-maxLength-1)/stride + 1
}
