package codec

// Datatype is a wire tensor element type.
type Datatype string

const (
	Bool   Datatype = "BOOL"
	Int8   Datatype = "INT8"
	Int16  Datatype = "INT16"
	Int32  Datatype = "INT32"
	Int64  Datatype = "INT64"
	Uint8  Datatype = "UINT8"
	Uint16 Datatype = "UINT16"
	Uint32 Datatype = "UINT32"
	Uint64 Datatype = "UINT64"
	Fp16   Datatype = "FP16"
	Fp32   Datatype = "FP32"
	Fp64   Datatype = "FP64"
	Bf16   Datatype = "BF16"
	Bytes  Datatype = "BYTES"
)

var byteWidths = map[Datatype]int64{
	Bool:   1,
	Int8:   1,
	Int16:  2,
	Int32:  4,
	Int64:  8,
	Uint8:  1,
	Uint16: 2,
	Uint32: 4,
	Uint64: 8,
	Fp16:   2,
	Fp32:   4,
	Fp64:   8,
	Bf16:   2,
	// BYTES elements are individually length-prefixed and have no fixed width.
	Bytes: 0,
}

// ParseDatatype validates a wire datatype string.
func ParseDatatype(s string) (Datatype, bool) {
	dt := Datatype(s)
	_, ok := byteWidths[dt]
	return dt, ok
}

// ByteWidth returns the fixed element width in bytes, or 0 for BYTES.
func (d Datatype) ByteWidth() int64 { return byteWidths[d] }

// hasTypedField reports whether the datatype can travel in a typed contents
// field. FP16 and BF16 only exist on the raw byte path.
func (d Datatype) hasTypedField() bool { return d != Fp16 && d != Bf16 }
