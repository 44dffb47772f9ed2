package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DataType is the declared data type of a tag.
type DataType string

const (
	DataTypeBool    DataType = "bool"
	DataTypeInt16   DataType = "int16"
	DataTypeUInt16  DataType = "uint16"
	DataTypeInt32   DataType = "int32"
	DataTypeUInt32  DataType = "uint32"
	DataTypeInt64   DataType = "int64"
	DataTypeFloat32 DataType = "float32"
	DataTypeFloat64 DataType = "float64"
	DataTypeString  DataType = "string"
)

// Quality is the coarse reliability flag accompanying a sampled value.
type Quality string

const (
	QualityGood Quality = "GOOD"
	QualityBad  Quality = "BAD"
)

// ValueKind discriminates the runtime type of a sampled value.
type ValueKind uint8

const (
	KindNone ValueKind = iota // explicit "no value"
	KindBool
	KindInt
	KindFloat
	KindString
)

// Value is a tagged union over the primitive kinds a tag can sample.
// The zero Value is the explicit "no value".
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
}

// NoValue returns the explicit absent value.
func NoValue() Value { return Value{} }

// BoolValue wraps a boolean sample.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue wraps an integer sample.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps a floating point sample.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// StringValue wraps a string sample.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the discriminator.
func (v Value) Kind() ValueKind { return v.kind }

// IsNone reports whether the value is the explicit "no value".
func (v Value) IsNone() bool { return v.kind == KindNone }

// Bool returns the boolean payload; ok is false for other kinds.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Int returns the integer payload; ok is false for other kinds.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float payload; ok is false for other kinds.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Str returns the string payload; ok is false for other kinds.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Any returns the payload as an untyped interface, nil for "no value".
func (v Value) Any() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	default:
		return nil
	}
}

// String implements fmt.Stringer for log output.
func (v Value) String() string {
	if v.kind == KindNone {
		return "<none>"
	}
	return fmt.Sprintf("%v", v.Any())
}

// MarshalJSON serializes the payload directly, null for "no value".
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON is the inverse of MarshalJSON. Integral JSON numbers become
// KindInt, everything else with a fraction or exponent becomes KindFloat.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case bool:
		*v = BoolValue(t)
	case string:
		*v = StringValue(t)
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			*v = IntValue(i)
			return nil
		}
		f, err := t.Float64()
		if err != nil {
			return err
		}
		*v = FloatValue(f)
	default:
		return fmt.Errorf("unsupported value payload %T", t)
	}
	return nil
}

// TagValue is an immutable snapshot of one sampled point. A new read
// produces a new TagValue; existing records are never mutated.
type TagValue struct {
	ServerID  string    `json:"server_id"`
	TagID     string    `json:"tag_id"`
	TagName   string    `json:"tag_name"`
	Value     Value     `json:"value"`
	DataType  DataType  `json:"data_type"`
	Quality   Quality   `json:"quality"`
	Timestamp time.Time `json:"timestamp"`
	Unit      string    `json:"unit,omitempty"`
}

// NewTagValue builds a snapshot for a successful or bad-quality sample.
func NewTagValue(serverID string, tag *Tag, value Value, quality Quality, ts time.Time) *TagValue {
	return &TagValue{
		ServerID:  serverID,
		TagID:     tag.NodeID,
		TagName:   tag.Name,
		Value:     value,
		DataType:  tag.DataType,
		Quality:   quality,
		Timestamp: ts,
		Unit:      tag.Unit,
	}
}

// ToJSON serializes the snapshot for the MQTT payload.
func (tv *TagValue) ToJSON() ([]byte, error) {
	return json.Marshal(tv)
}
