// Package tensor holds the in-memory tensor representation and the
// safetensors container codec used to persist collections of tensors.
package tensor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidTensor is returned when a tensor buffer does not match its dtype and shape.
var ErrInvalidTensor = errors.New("invalid tensor")

// Shape lists the size of each dimension. An empty shape is a scalar.
type Shape []int

// String renders the textual shape descriptor, e.g. "[2, 3]".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// NumElements is the product of all dimensions.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal compares two shapes dimension by dimension.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Tensor is a dense array of elements stored as raw little-endian bytes.
type Tensor struct {
	DType DType
	Shape Shape
	Data  []byte
}

// New validates data against dtype and shape and returns the tensor.
func New(dtype DType, shape Shape, data []byte) (*Tensor, error) {
	t := &Tensor{DType: dtype, Shape: append(Shape(nil), shape...), Data: data}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// FromFloat32 builds an F32 tensor from values.
func FromFloat32(shape Shape, values []float32) (*Tensor, error) {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return New(F32, shape, data)
}

func (t *Tensor) validate() error {
	if !t.DType.Valid() {
		return fmt.Errorf("%w: unknown dtype %d", ErrInvalidTensor, uint8(t.DType))
	}
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in shape %s", ErrInvalidTensor, t.Shape)
		}
	}
	if want := t.Shape.NumElements() * t.DType.Size(); len(t.Data) != want {
		return fmt.Errorf("%w: %s%s needs %d bytes, got %d", ErrInvalidTensor, t.DType, t.Shape, want, len(t.Data))
	}
	return nil
}

// Bytes is the serialized element buffer.
func (t *Tensor) Bytes() []byte {
	return t.Data
}

// Size is the length of the element buffer in bytes.
func (t *Tensor) Size() int {
	return len(t.Data)
}

// Equal reports whether both tensors have the same dtype, shape and bytes.
func (t *Tensor) Equal(o *Tensor) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.DType == o.DType && t.Shape.Equal(o.Shape) && bytes.Equal(t.Data, o.Data)
}

// Collection maps tensor names to tensors.
type Collection map[string]*Tensor

// Names returns the tensor names sorted lexicographically.
func (c Collection) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size is the total number of element bytes in the collection.
func (c Collection) Size() int {
	n := 0
	for _, t := range c {
		if t != nil {
			n += t.Size()
		}
	}
	return n
}

// Equal compares two collections tensor by tensor.
func (c Collection) Equal(o Collection) bool {
	if len(c) != len(o) {
		return false
	}
	for name, t := range c {
		ot, ok := o[name]
		if !ok || !t.Equal(ot) {
			return false
		}
	}
	return true
}
