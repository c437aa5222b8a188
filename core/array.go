package core

import "fmt"

// Array is a dense, row-major float64 array with an explicit shape.
// Axis 0 is always time; the remaining axes describe one frame.
// For example raw ultrasound is [time, vector, pixel] and spline data is
// [time, channel, point].
type Array struct {
	shape []int
	data  []float64
}

// NewArray builds an Array from a shape and a backing slice.
// The slice is adopted, not copied. Every dimension must be non-negative
// and len(data) must equal the product of the dimensions.
// Complexity: O(len(shape))
func NewArray(shape []int, data []float64) (*Array, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: empty shape", ErrBadShape)
	}
	size := 1
	for _, dim := range shape {
		if dim < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d", ErrBadShape, dim)
		}
		size *= dim
	}
	if size != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d",
			ErrBadShape, shape, size, len(data))
	}
	a := &Array{shape: make([]int, len(shape)), data: data}
	copy(a.shape, shape)
	return a, nil
}

// Zeros builds a zero-filled Array of the given shape.
func Zeros(shape ...int) (*Array, error) {
	size := 1
	for _, dim := range shape {
		if dim < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d", ErrBadShape, dim)
		}
		size *= dim
	}
	return NewArray(shape, make([]float64, size))
}

// Shape returns a copy of the array's dimensions.
func (a *Array) Shape() []int {
	shape := make([]int, len(a.shape))
	copy(shape, a.shape)
	return shape
}

// Data returns the backing slice. Mutating it mutates the Array.
func (a *Array) Data() []float64 { return a.data }

// Len returns the total element count.
func (a *Array) Len() int { return len(a.data) }

// Frames returns the extent of the time axis.
func (a *Array) Frames() int { return a.shape[0] }

// FrameSize returns the element count of a single frame.
func (a *Array) FrameSize() int {
	size := 1
	for _, dim := range a.shape[1:] {
		size *= dim
	}
	return size
}

// Frame returns the i-th frame as a view into the backing slice.
func (a *Array) Frame(i int) []float64 {
	size := a.FrameSize()
	return a.data[i*size : (i+1)*size]
}

// At returns the element at the given index, one coordinate per axis.
func (a *Array) At(index ...int) float64 {
	offset := 0
	for axis, i := range index {
		offset = offset*a.shape[axis] + i
	}
	return a.data[offset]
}

// SameLayout reports whether b has exactly the same shape and element
// count as a. This is the overwrite-guard equality used by SetArray.
func (a *Array) SameLayout(b *Array) bool {
	if b == nil || len(a.shape) != len(b.shape) || len(a.data) != len(b.data) {
		return false
	}
	for i, dim := range a.shape {
		if b.shape[i] != dim {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the Array.
func (a *Array) Clone() *Array {
	data := make([]float64, len(a.data))
	copy(data, a.data)
	clone, _ := NewArray(a.shape, data)
	return clone
}

// Decimate returns a new Array holding every ratio-th frame of a,
// starting from frame 0. Plain stride decimation, no anti-alias filter.
// The result has ceil(Frames/ratio) frames.
// Complexity: O(Len/ratio)
func (a *Array) Decimate(ratio int) (*Array, error) {
	if ratio < 1 {
		return nil, fmt.Errorf("%w: decimation ratio %d", ErrBadShape, ratio)
	}
	frames := (a.Frames() + ratio - 1) / ratio
	size := a.FrameSize()
	data := make([]float64, 0, frames*size)
	for i := 0; i < a.Frames(); i += ratio {
		data = append(data, a.Frame(i)...)
	}
	shape := a.Shape()
	shape[0] = frames
	return NewArray(shape, data)
}
