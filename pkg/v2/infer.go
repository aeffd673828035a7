package v2

// ServingSchedule carries parallel per-node routing sequences. The three
// slices must be equal length; the codec rejects anything else.
type ServingSchedule struct {
	NodeName []string  `json:"node_name"`
	Arrival  []float64 `json:"arrival"`
	Serving  []float64 `json:"serving"`
}

// InferParameter is the wire form of a parameter value. Exactly one field may
// be populated; the exclusivity is not expressible in the message layout and
// is enforced by the parameter codec at decode time.
type InferParameter struct {
	BoolParam     *bool              `json:"bool_param,omitempty"`
	Int64Param    *int64             `json:"int64_param,omitempty"`
	StringParam   *string            `json:"string_param,omitempty"`
	BytesParam    []byte             `json:"bytes_param,omitempty"`
	Schedule      *ServingSchedule   `json:"schedule,omitempty"`
	ScheduleBatch []*ServingSchedule `json:"schedule_batch,omitempty"`
}

// InferTensorContents holds typed tensor data, one repeated field per
// datatype family. INT8/INT16 values travel in IntContents and UINT8/UINT16
// in UintContents. FP16 and BF16 have no typed field and must use the raw
// contents path.
type InferTensorContents struct {
	BoolContents   []bool    `json:"bool_contents,omitempty"`
	IntContents    []int32   `json:"int_contents,omitempty"`
	Int64Contents  []int64   `json:"int64_contents,omitempty"`
	UintContents   []uint32  `json:"uint_contents,omitempty"`
	Uint64Contents []uint64  `json:"uint64_contents,omitempty"`
	Fp32Contents   []float32 `json:"fp32_contents,omitempty"`
	Fp64Contents   []float64 `json:"fp64_contents,omitempty"`
	BytesContents  [][]byte  `json:"bytes_contents,omitempty"`
}

// InferInputTensor is one request input. Contents is mutually exclusive with
// an entry in the request's RawInputContents list.
type InferInputTensor struct {
	Name       string                     `json:"name"`
	Datatype   string                     `json:"datatype"`
	Shape      []int64                    `json:"shape"`
	Parameters map[string]*InferParameter `json:"parameters,omitempty"`
	Contents   *InferTensorContents       `json:"contents,omitempty"`
}

// InferRequestedOutputTensor names an output the caller wants returned.
type InferRequestedOutputTensor struct {
	Name       string                     `json:"name"`
	Parameters map[string]*InferParameter `json:"parameters,omitempty"`
}

// InferOutputTensor is one response output, mirroring InferInputTensor.
type InferOutputTensor struct {
	Name       string                     `json:"name"`
	Datatype   string                     `json:"datatype"`
	Shape      []int64                    `json:"shape"`
	Parameters map[string]*InferParameter `json:"parameters,omitempty"`
	Contents   *InferTensorContents       `json:"contents,omitempty"`
}

// ModelInferRequest is the inference request message. When RawInputContents
// is non-empty it must align 1:1, in order and count, with Inputs, and every
// aligned input must leave Contents nil.
type ModelInferRequest struct {
	ModelName        string                        `json:"model_name,omitempty"`
	ModelVersion     string                        `json:"model_version,omitempty"`
	ID               string                        `json:"id,omitempty"`
	Parameters       map[string]*InferParameter    `json:"parameters,omitempty"`
	Inputs           []*InferInputTensor           `json:"inputs"`
	Outputs          []*InferRequestedOutputTensor `json:"outputs,omitempty"`
	RawInputContents [][]byte                      `json:"raw_input_contents,omitempty"`
}

// ModelInferResponse mirrors ModelInferRequest on the output side.
type ModelInferResponse struct {
	ModelName         string                     `json:"model_name"`
	ModelVersion      string                     `json:"model_version"`
	ID                string                     `json:"id"`
	Parameters        map[string]*InferParameter `json:"parameters,omitempty"`
	Outputs           []*InferOutputTensor       `json:"outputs"`
	RawOutputContents [][]byte                   `json:"raw_output_contents,omitempty"`
}
