package codec

import (
	"fmt"

	"inferd/pkg/v2"
)

// ParamKind tags the populated variant of a ParamValue.
type ParamKind int

const (
	KindBool ParamKind = iota
	KindInt64
	KindString
	KindBytes
	KindSchedule
	KindScheduleBatch
)

// ParamValue is the in-memory tagged variant behind a wire InferParameter.
// Exactly one variant is populated, as selected by Kind.
type ParamValue struct {
	Kind          ParamKind
	Bool          bool
	Int64         int64
	String        string
	Bytes         []byte
	Schedule      *v2.ServingSchedule
	ScheduleBatch []*v2.ServingSchedule
}

func BoolValue(b bool) ParamValue     { return ParamValue{Kind: KindBool, Bool: b} }
func Int64Value(v int64) ParamValue   { return ParamValue{Kind: KindInt64, Int64: v} }
func StringValue(s string) ParamValue { return ParamValue{Kind: KindString, String: s} }
func BytesValue(b []byte) ParamValue  { return ParamValue{Kind: KindBytes, Bytes: b} }

// DecodeParameter converts one wire parameter, rejecting anything with more
// or fewer than one populated variant and schedules whose parallel sequences
// disagree in length.
func DecodeParameter(name string, p *v2.InferParameter) (ParamValue, error) {
	if p == nil {
		return ParamValue{}, ErrInvalidArgument(name, "parameter has no value")
	}
	var out ParamValue
	populated := 0
	if p.BoolParam != nil {
		populated++
		out = BoolValue(*p.BoolParam)
	}
	if p.Int64Param != nil {
		populated++
		out = Int64Value(*p.Int64Param)
	}
	if p.StringParam != nil {
		populated++
		out = StringValue(*p.StringParam)
	}
	if p.BytesParam != nil {
		populated++
		out = BytesValue(p.BytesParam)
	}
	if p.Schedule != nil {
		populated++
		if err := validateSchedule(name, p.Schedule); err != nil {
			return ParamValue{}, err
		}
		out = ParamValue{Kind: KindSchedule, Schedule: p.Schedule}
	}
	if p.ScheduleBatch != nil {
		populated++
		for i, s := range p.ScheduleBatch {
			if s == nil {
				return ParamValue{}, ErrInvalidArgument(name, fmt.Sprintf("schedule_batch[%d] is empty", i))
			}
			if err := validateSchedule(name, s); err != nil {
				return ParamValue{}, err
			}
		}
		out = ParamValue{Kind: KindScheduleBatch, ScheduleBatch: p.ScheduleBatch}
	}
	switch populated {
	case 0:
		return ParamValue{}, ErrInvalidArgument(name, "parameter has no value")
	case 1:
		return out, nil
	}
	return ParamValue{}, ErrInvalidArgument(name, fmt.Sprintf("parameter has %d populated variants, expected exactly one", populated))
}

func validateSchedule(name string, s *v2.ServingSchedule) error {
	if len(s.NodeName) != len(s.Arrival) || len(s.NodeName) != len(s.Serving) {
		return ErrInvalidArgument(name, fmt.Sprintf("schedule sequences disagree in length: node_name=%d arrival=%d serving=%d",
			len(s.NodeName), len(s.Arrival), len(s.Serving)))
	}
	return nil
}

// EncodeParameter converts a ParamValue back to its wire form.
func EncodeParameter(v ParamValue) *v2.InferParameter {
	switch v.Kind {
	case KindBool:
		b := v.Bool
		return &v2.InferParameter{BoolParam: &b}
	case KindInt64:
		i := v.Int64
		return &v2.InferParameter{Int64Param: &i}
	case KindString:
		s := v.String
		return &v2.InferParameter{StringParam: &s}
	case KindBytes:
		return &v2.InferParameter{BytesParam: v.Bytes}
	case KindSchedule:
		return &v2.InferParameter{Schedule: v.Schedule}
	case KindScheduleBatch:
		return &v2.InferParameter{ScheduleBatch: v.ScheduleBatch}
	}
	return &v2.InferParameter{}
}

// DecodeParameters converts a wire parameter map, attributing failures to the
// offending key.
func DecodeParameters(ps map[string]*v2.InferParameter) (map[string]ParamValue, error) {
	if len(ps) == 0 {
		return nil, nil
	}
	out := make(map[string]ParamValue, len(ps))
	for name, p := range ps {
		v, err := DecodeParameter(name, p)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// EncodeParameters converts a ParamValue map to its wire form.
func EncodeParameters(vs map[string]ParamValue) map[string]*v2.InferParameter {
	if len(vs) == 0 {
		return nil
	}
	out := make(map[string]*v2.InferParameter, len(vs))
	for name, v := range vs {
		out[name] = EncodeParameter(v)
	}
	return out
}
