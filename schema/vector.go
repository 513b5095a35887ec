package schema

// Vector is an immutable feature vector. The zero value is an empty vector.
type Vector struct {
	values []float64
}

// NewVector copies values into a new Vector.
func NewVector(values []float64) Vector {
	cp := make([]float64, len(values))
	copy(cp, values)
	return Vector{values: cp}
}

// Len returns the number of features.
func (v Vector) Len() int { return len(v.values) }

// At returns the feature at index i. It panics when i is out of range.
func (v Vector) At(i int) float64 { return v.values[i] }

// Values returns a copy of the features.
func (v Vector) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// Slice returns a read-only view of [start, end) sharing storage with v.
func (v Vector) Slice(start, end int) Vector {
	return Vector{values: v.values[start:end:end]}
}

// Range returns the view for r.
func (v Vector) Range(r Range) Vector {
	return v.Slice(r.Start, r.End)
}
