package data

import "gonum.org/v1/gonum/stat"

// Summary describes how a dataset covers its source sequence.
type Summary struct {
	Examples  int
	Tokens    int
	MaxLength int
	Stride    int
	// Covered is the number of source tokens inside at least one input window.
	Covered int
	// Overlap is the number of tokens consecutive windows share.
	Overlap int
	// MeanID and StdDevID describe the token ids across all input windows.
	MeanID   float64
	StdDevID float64
}

// Summarize computes a Summary of ds.
func Summarize(ds *Dataset) Summary {
	s := Summary{
		Examples:  ds.Len(),
		Tokens:    ds.Tokens(),
		MaxLength: ds.maxLength,
		Stride:    ds.stride,
		Overlap:   max(0, ds.maxLength-ds.stride),
	}
	if s.Examples == 0 {
		return s
	}
	if ds.stride >= ds.maxLength {
		s.Covered = s.Examples * ds.maxLength
	} else {
		s.Covered = (s.Examples-1)*ds.stride + ds.maxLength
	}
	values := make([]float64, 0, s.Examples*ds.maxLength)
	for _, example := range ds.examples {
		for _, id := range example.Input {
			values = append(values, float64(id))
		}
	}
	if len(values) == 1 {
		s.MeanID = values[0]
		return s
	}
	s.MeanID, s.StdDevID = stat.MeanStdDev(values, nil)
	return s
}
