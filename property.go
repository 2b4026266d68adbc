package tdms

import (
	"fmt"
	"time"
)

// Property is a single named, typed value attached to a file, group, or
// channel object. Arrays are not permitted as property values.
type Property struct {
	Name     string
	TypeCode DataType
	Value    any
}

// String implements [fmt.Stringer].
func (p Property) String() string {
	return fmt.Sprintf("%s: %v", p.Name, p.Value)
}

// NewProperty builds a [Property] from a concrete Go value, inferring the
// TDMS type code. Supported value types are the ones produced by
// [decodePropertyValue]: the signed/unsigned integers, float32/64, string,
// bool, [Timestamp], complex64, and complex128.
func NewProperty(name string, value any) (Property, error) {
	dt, err := dataTypeOf(value)
	if err != nil {
		return Property{}, err
	}
	return Property{Name: name, TypeCode: dt, Value: value}, nil
}

func dataTypeOf(value any) (DataType, error) {
	switch value.(type) {
	case int8:
		return DataTypeI8, nil
	case int16:
		return DataTypeI16, nil
	case int32:
		return DataTypeI32, nil
	case int64:
		return DataTypeI64, nil
	case uint8:
		return DataTypeU8, nil
	case uint16:
		return DataTypeU16, nil
	case uint32:
		return DataTypeU32, nil
	case uint64:
		return DataTypeU64, nil
	case float32:
		return DataTypeF32, nil
	case float64:
		return DataTypeF64, nil
	case string:
		return DataTypeString, nil
	case bool:
		return DataTypeBool, nil
	case Timestamp:
		return DataTypeTimestamp, nil
	case complex64:
		return DataTypeComplexF32, nil
	case complex128:
		return DataTypeComplexF64, nil
	default:
		return DataTypeVoid, fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}
}

// AsInt8 returns the property value as an int8, or [ErrIncorrectType] if the
// property isn't of type [DataTypeI8].
func (p Property) AsInt8() (int8, error) {
	if p.TypeCode != DataTypeI8 {
		return 0, ErrIncorrectType
	}
	return p.Value.(int8), nil
}

// AsInt16 returns the property value as an int16.
func (p Property) AsInt16() (int16, error) {
	if p.TypeCode != DataTypeI16 {
		return 0, ErrIncorrectType
	}
	return p.Value.(int16), nil
}

// AsInt32 returns the property value as an int32.
func (p Property) AsInt32() (int32, error) {
	if p.TypeCode != DataTypeI32 {
		return 0, ErrIncorrectType
	}
	return p.Value.(int32), nil
}

// AsInt64 returns the property value as an int64.
func (p Property) AsInt64() (int64, error) {
	if p.TypeCode != DataTypeI64 {
		return 0, ErrIncorrectType
	}
	return p.Value.(int64), nil
}

// AsUint8 returns the property value as a uint8.
func (p Property) AsUint8() (uint8, error) {
	if p.TypeCode != DataTypeU8 {
		return 0, ErrIncorrectType
	}
	return p.Value.(uint8), nil
}

// AsUint16 returns the property value as a uint16.
func (p Property) AsUint16() (uint16, error) {
	if p.TypeCode != DataTypeU16 {
		return 0, ErrIncorrectType
	}
	return p.Value.(uint16), nil
}

// AsUint32 returns the property value as a uint32.
func (p Property) AsUint32() (uint32, error) {
	if p.TypeCode != DataTypeU32 {
		return 0, ErrIncorrectType
	}
	return p.Value.(uint32), nil
}

// AsUint64 returns the property value as a uint64.
func (p Property) AsUint64() (uint64, error) {
	if p.TypeCode != DataTypeU64 {
		return 0, ErrIncorrectType
	}
	return p.Value.(uint64), nil
}

// AsFloat32 returns the property value as a float32. This also covers
// properties originally encoded with a [DataTypeF32Unit] type code, which
// decode to a plain float32 plus a sibling "unit_string" property.
func (p Property) AsFloat32() (float32, error) {
	if p.TypeCode != DataTypeF32 {
		return 0, ErrIncorrectType
	}
	return p.Value.(float32), nil
}

// AsFloat64 returns the property value as a float64.
func (p Property) AsFloat64() (float64, error) {
	if p.TypeCode != DataTypeF64 {
		return 0, ErrIncorrectType
	}
	return p.Value.(float64), nil
}

// AsString returns the property value as a string.
func (p Property) AsString() (string, error) {
	if p.TypeCode != DataTypeString {
		return "", ErrIncorrectType
	}
	return p.Value.(string), nil
}

// AsBool returns the property value as a bool.
func (p Property) AsBool() (bool, error) {
	if p.TypeCode != DataTypeBool {
		return false, ErrIncorrectType
	}
	return p.Value.(bool), nil
}

// AsTimestamp returns the property value as a [Timestamp].
func (p Property) AsTimestamp() (Timestamp, error) {
	if p.TypeCode != DataTypeTimestamp {
		return Timestamp{}, ErrIncorrectType
	}
	return p.Value.(Timestamp), nil
}

// AsTime returns the property value as a [time.Time], converting from the
// TDMS timestamp representation.
func (p Property) AsTime() (time.Time, error) {
	ts, err := p.AsTimestamp()
	if err != nil {
		return time.Time{}, err
	}
	return ts.AsTime(), nil
}

// AsComplex64 returns the property value as a complex64.
func (p Property) AsComplex64() (complex64, error) {
	if p.TypeCode != DataTypeComplexF32 {
		return 0, ErrIncorrectType
	}
	return p.Value.(complex64), nil
}

// AsComplex128 returns the property value as a complex128.
func (p Property) AsComplex128() (complex128, error) {
	if p.TypeCode != DataTypeComplexF64 {
		return 0, ErrIncorrectType
	}
	return p.Value.(complex128), nil
}
