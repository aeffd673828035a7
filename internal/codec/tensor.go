package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"inferd/pkg/v2"
)

// TensorSpec is a model's declared signature for one input or output tensor.
// A shape dimension of -1 accepts any concrete size at that position.
type TensorSpec struct {
	Name     string
	Datatype Datatype
	Shape    []int64
}

// Tensor is a fully concrete runtime tensor. Data is the flattened row-major
// little-endian buffer; for BYTES each element is prefixed with a 4-byte
// little-endian length. The decode and raw-encode paths alias buffers instead
// of copying them, so callers must treat Data as read-only.
type Tensor struct {
	Name     string
	Datatype Datatype
	Shape    []int64
	Data     []byte
}

// ElementCount returns the product of all dimensions. Every dimension must be
// concrete; variable dimensions are substituted before tensors reach the codec.
func ElementCount(name string, shape []int64) (int64, error) {
	n := int64(1)
	for _, d := range shape {
		if d < 0 {
			return 0, ErrInvalidArgument(name, fmt.Sprintf("shape %v is not concrete", shape))
		}
		n *= d
	}
	return n, nil
}

// Validate checks that the buffer length matches the shape and datatype.
func (t *Tensor) Validate() error {
	if _, ok := ParseDatatype(string(t.Datatype)); !ok {
		return ErrInvalidArgument(t.Name, fmt.Sprintf("unsupported datatype %q", t.Datatype))
	}
	n, err := ElementCount(t.Name, t.Shape)
	if err != nil {
		return err
	}
	if t.Datatype == Bytes {
		return walkBytesBuffer(t.Name, t.Data, n, nil)
	}
	if want := n * t.Datatype.ByteWidth(); int64(len(t.Data)) != want {
		return ErrInvalidArgument(t.Name, fmt.Sprintf("buffer is %d bytes, expected %d for %d %s elements",
			len(t.Data), want, n, t.Datatype))
	}
	return nil
}

// walkBytesBuffer walks a raw BYTES buffer of count length-prefixed elements,
// invoking visit for each payload when non-nil. The buffer must be consumed
// exactly.
func walkBytesBuffer(name string, buf []byte, count int64, visit func([]byte)) error {
	off := int64(0)
	for i := int64(0); i < count; i++ {
		if off+4 > int64(len(buf)) {
			return ErrInvalidArgument(name, fmt.Sprintf("raw BYTES buffer truncated at element %d of %d", i, count))
		}
		l := int64(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
		if off+l > int64(len(buf)) {
			return ErrInvalidArgument(name, fmt.Sprintf("raw BYTES element %d declares %d bytes past end of buffer", i, l))
		}
		if visit != nil {
			visit(buf[off : off+l])
		}
		off += l
	}
	if off != int64(len(buf)) {
		return ErrInvalidArgument(name, fmt.Sprintf("raw BYTES buffer has %d trailing bytes after %d elements", int64(len(buf))-off, count))
	}
	return nil
}

// DecodeTensor converts one wire tensor into a Tensor. Exactly one of the
// typed contents and the raw buffer may be present; hasRaw distinguishes an
// absent raw entry from a legitimately empty one. Raw buffers are aliased,
// not copied.
func DecodeTensor(name, datatype string, shape []int64, contents *v2.InferTensorContents, raw []byte, hasRaw bool) (*Tensor, error) {
	dt, ok := ParseDatatype(datatype)
	if !ok {
		return nil, ErrInvalidArgument(name, fmt.Sprintf("unsupported datatype %q", datatype))
	}
	n, err := ElementCount(name, shape)
	if err != nil {
		return nil, err
	}
	if contents != nil && hasRaw {
		return nil, ErrInvalidArgument(name, "tensor has both typed contents and a raw contents entry")
	}
	if contents == nil && !hasRaw {
		return nil, ErrInvalidArgument(name, "tensor has neither typed contents nor a raw contents entry")
	}
	if hasRaw {
		t := &Tensor{Name: name, Datatype: dt, Shape: shape, Data: raw}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		return t, nil
	}
	if !dt.hasTypedField() {
		return nil, ErrInvalidArgument(name, fmt.Sprintf("%s has no typed representation, use raw contents", dt))
	}
	data, err := packContents(name, dt, n, contents)
	if err != nil {
		return nil, err
	}
	return &Tensor{Name: name, Datatype: dt, Shape: shape, Data: data}, nil
}

// EncodeTensor converts a Tensor into its wire form. With preferRaw (and
// always for FP16/BF16) the tensor's own buffer is returned as the raw entry;
// otherwise the typed contents are populated.
func EncodeTensor(t *Tensor, preferRaw bool) (*v2.InferTensorContents, []byte, bool, error) {
	if err := t.Validate(); err != nil {
		return nil, nil, false, err
	}
	if preferRaw || !t.Datatype.hasTypedField() {
		return nil, t.Data, true, nil
	}
	n, err := ElementCount(t.Name, t.Shape)
	if err != nil {
		return nil, nil, false, err
	}
	contents, err := unpackContents(t.Name, t.Datatype, n, t.Data)
	if err != nil {
		return nil, nil, false, err
	}
	return contents, nil, false, nil
}

func packContents(name string, dt Datatype, n int64, c *v2.InferTensorContents) ([]byte, error) {
	countErr := func(field string, got int) error {
		return ErrInvalidArgument(name, fmt.Sprintf("expected %d values in %s, got %d", n, field, got))
	}
	switch dt {
	case Bool:
		if int64(len(c.BoolContents)) != n {
			return nil, countErr("bool_contents", len(c.BoolContents))
		}
		out := make([]byte, n)
		for i, v := range c.BoolContents {
			if v {
				out[i] = 1
			}
		}
		return out, nil
	case Int8, Int16, Int32:
		if int64(len(c.IntContents)) != n {
			return nil, countErr("int_contents", len(c.IntContents))
		}
		return packInts(name, dt, c.IntContents)
	case Int64:
		if int64(len(c.Int64Contents)) != n {
			return nil, countErr("int64_contents", len(c.Int64Contents))
		}
		out := make([]byte, n*8)
		for i, v := range c.Int64Contents {
			binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
		}
		return out, nil
	case Uint8, Uint16, Uint32:
		if int64(len(c.UintContents)) != n {
			return nil, countErr("uint_contents", len(c.UintContents))
		}
		return packUints(name, dt, c.UintContents)
	case Uint64:
		if int64(len(c.Uint64Contents)) != n {
			return nil, countErr("uint64_contents", len(c.Uint64Contents))
		}
		out := make([]byte, n*8)
		for i, v := range c.Uint64Contents {
			binary.LittleEndian.PutUint64(out[i*8:], v)
		}
		return out, nil
	case Fp32:
		if int64(len(c.Fp32Contents)) != n {
			return nil, countErr("fp32_contents", len(c.Fp32Contents))
		}
		out := make([]byte, n*4)
		for i, v := range c.Fp32Contents {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
		return out, nil
	case Fp64:
		if int64(len(c.Fp64Contents)) != n {
			return nil, countErr("fp64_contents", len(c.Fp64Contents))
		}
		out := make([]byte, n*8)
		for i, v := range c.Fp64Contents {
			binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
		}
		return out, nil
	case Bytes:
		if int64(len(c.BytesContents)) != n {
			return nil, countErr("bytes_contents", len(c.BytesContents))
		}
		size := int64(0)
		for _, el := range c.BytesContents {
			size += 4 + int64(len(el))
		}
		out := make([]byte, 0, size)
		var prefix [4]byte
		for _, el := range c.BytesContents {
			binary.LittleEndian.PutUint32(prefix[:], uint32(len(el)))
			out = append(out, prefix[:]...)
			out = append(out, el...)
		}
		return out, nil
	}
	return nil, ErrInvalidArgument(name, fmt.Sprintf("%s has no typed representation, use raw contents", dt))
}

func packInts(name string, dt Datatype, vals []int32) ([]byte, error) {
	w := dt.ByteWidth()
	out := make([]byte, int64(len(vals))*w)
	for i, v := range vals {
		switch dt {
		case Int8:
			if v < math.MinInt8 || v > math.MaxInt8 {
				return nil, ErrInvalidArgument(name, fmt.Sprintf("value %d out of range for INT8", v))
			}
			out[i] = byte(int8(v))
		case Int16:
			if v < math.MinInt16 || v > math.MaxInt16 {
				return nil, ErrInvalidArgument(name, fmt.Sprintf("value %d out of range for INT16", v))
			}
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
		case Int32:
			binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
		}
	}
	return out, nil
}

func packUints(name string, dt Datatype, vals []uint32) ([]byte, error) {
	w := dt.ByteWidth()
	out := make([]byte, int64(len(vals))*w)
	for i, v := range vals {
		switch dt {
		case Uint8:
			if v > math.MaxUint8 {
				return nil, ErrInvalidArgument(name, fmt.Sprintf("value %d out of range for UINT8", v))
			}
			out[i] = byte(v)
		case Uint16:
			if v > math.MaxUint16 {
				return nil, ErrInvalidArgument(name, fmt.Sprintf("value %d out of range for UINT16", v))
			}
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		case Uint32:
			binary.LittleEndian.PutUint32(out[i*4:], v)
		}
	}
	return out, nil
}

func unpackContents(name string, dt Datatype, n int64, data []byte) (*v2.InferTensorContents, error) {
	c := &v2.InferTensorContents{}
	switch dt {
	case Bool:
		c.BoolContents = make([]bool, n)
		for i := range c.BoolContents {
			c.BoolContents[i] = data[i] != 0
		}
	case Int8:
		c.IntContents = make([]int32, n)
		for i := range c.IntContents {
			c.IntContents[i] = int32(int8(data[i]))
		}
	case Int16:
		c.IntContents = make([]int32, n)
		for i := range c.IntContents {
			c.IntContents[i] = int32(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	case Int32:
		c.IntContents = make([]int32, n)
		for i := range c.IntContents {
			c.IntContents[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case Int64:
		c.Int64Contents = make([]int64, n)
		for i := range c.Int64Contents {
			c.Int64Contents[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
		}
	case Uint8:
		c.UintContents = make([]uint32, n)
		for i := range c.UintContents {
			c.UintContents[i] = uint32(data[i])
		}
	case Uint16:
		c.UintContents = make([]uint32, n)
		for i := range c.UintContents {
			c.UintContents[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case Uint32:
		c.UintContents = make([]uint32, n)
		for i := range c.UintContents {
			c.UintContents[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
	case Uint64:
		c.Uint64Contents = make([]uint64, n)
		for i := range c.Uint64Contents {
			c.Uint64Contents[i] = binary.LittleEndian.Uint64(data[i*8:])
		}
	case Fp32:
		c.Fp32Contents = make([]float32, n)
		for i := range c.Fp32Contents {
			c.Fp32Contents[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case Fp64:
		c.Fp64Contents = make([]float64, n)
		for i := range c.Fp64Contents {
			c.Fp64Contents[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		}
	case Bytes:
		c.BytesContents = make([][]byte, 0, n)
		err := walkBytesBuffer(name, data, n, func(el []byte) {
			c.BytesContents = append(c.BytesContents, el)
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidArgument(name, fmt.Sprintf("%s has no typed representation, use raw contents", dt))
	}
	return c, nil
}
