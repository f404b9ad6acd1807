package tensor

import (
	"fmt"
	"strings"
)

// DType is the element type of a tensor.
type DType uint8

const (
	Bool DType = iota
	U8
	I8
	U16
	I16
	F16
	BF16
	U32
	I32
	F32
	U64
	I64
	F64
	F8E4M3
	F8E5M2
)

type dtypeInfo struct {
	name string // hash identifier
	wire string // safetensors spelling
	size int
}

var dtypes = [...]dtypeInfo{
	Bool:   {"bool", "BOOL", 1},
	U8:     {"u8", "U8", 1},
	I8:     {"i8", "I8", 1},
	U16:    {"u16", "U16", 2},
	I16:    {"i16", "I16", 2},
	F16:    {"f16", "F16", 2},
	BF16:   {"bf16", "BF16", 2},
	U32:    {"u32", "U32", 4},
	I32:    {"i32", "I32", 4},
	F32:    {"f32", "F32", 4},
	U64:    {"u64", "U64", 8},
	I64:    {"i64", "I64", 8},
	F64:    {"f64", "F64", 8},
	F8E4M3: {"f8e4m3", "F8_E4M3", 1},
	F8E5M2: {"f8e5m2", "F8_E5M2", 1},
}

// Valid reports whether d is one of the known element types.
func (d DType) Valid() bool {
	return int(d) < len(dtypes)
}

// String returns the lowercase identifier of the type, e.g. "f32".
func (d DType) String() string {
	if !d.Valid() {
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
	return dtypes[d].name
}

// Wire returns the spelling used in safetensors headers, e.g. "F32".
func (d DType) Wire() string {
	if !d.Valid() {
		return ""
	}
	return dtypes[d].wire
}

// Size is the number of bytes per element.
func (d DType) Size() int {
	if !d.Valid() {
		return 0
	}
	return dtypes[d].size
}

// ParseDType accepts both the safetensors spelling ("BF16") and the
// lowercase identifier ("bf16").
func ParseDType(s string) (DType, error) {
	for i, info := range dtypes {
		if s == info.wire || strings.EqualFold(s, info.name) {
			return DType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", s)
}
