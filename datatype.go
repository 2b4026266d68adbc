package tdms

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DataType is the TDMS type code tag used for both channel raw data and
// property values.
type DataType uint32

const (
	DataTypeVoid              DataType = 0x00000000
	DataTypeI8                DataType = 0x00000001
	DataTypeI16               DataType = 0x00000002
	DataTypeI32               DataType = 0x00000003
	DataTypeI64               DataType = 0x00000004
	DataTypeU8                DataType = 0x00000005
	DataTypeU16               DataType = 0x00000006
	DataTypeU32               DataType = 0x00000007
	DataTypeU64               DataType = 0x00000008
	DataTypeF32               DataType = 0x00000009
	DataTypeF64               DataType = 0x0000000A
	DataTypeExtendedFloat     DataType = 0x0000000B
	DataTypeF32Unit           DataType = 0x00000019
	DataTypeF64Unit           DataType = 0x0000001A
	DataTypeExtendedFloatUnit DataType = 0x0000001B
	DataTypeString            DataType = 0x00000020
	DataTypeBool              DataType = 0x00000021
	DataTypeTimestamp         DataType = 0x00000044
	DataTypeComplexF32        DataType = 0x0008000C
	DataTypeComplexF64        DataType = 0x0010000D
	DataTypeDAQmxRawData      DataType = 0xFFFFFFFF
)

// Size returns the fixed on-disk size in bytes of one value of this type, or
// 0 if the type is variable-size (only [DataTypeString] in TDMS 2.0).
func (dt DataType) Size() int {
	switch dt {
	case DataTypeVoid, DataTypeString:
		return 0
	case DataTypeI8, DataTypeU8, DataTypeBool:
		return 1
	case DataTypeI16, DataTypeU16:
		return 2
	case DataTypeI32, DataTypeU32, DataTypeF32, DataTypeF32Unit:
		return 4
	case DataTypeI64, DataTypeU64, DataTypeF64, DataTypeF64Unit, DataTypeComplexF32:
		return 8
	case DataTypeExtendedFloat, DataTypeExtendedFloatUnit, DataTypeTimestamp, DataTypeComplexF64:
		return 16
	default:
		return 0
	}
}

// IsVariableSize reports whether values of this type vary in byte size
// (true only for [DataTypeString]).
func (dt DataType) IsVariableSize() bool {
	return dt == DataTypeString
}

func (dt DataType) String() string {
	switch dt {
	case DataTypeVoid:
		return "Void"
	case DataTypeI8:
		return "Int8"
	case DataTypeI16:
		return "Int16"
	case DataTypeI32:
		return "Int32"
	case DataTypeI64:
		return "Int64"
	case DataTypeU8:
		return "Uint8"
	case DataTypeU16:
		return "Uint16"
	case DataTypeU32:
		return "Uint32"
	case DataTypeU64:
		return "Uint64"
	case DataTypeF32, DataTypeF32Unit:
		return "Float32"
	case DataTypeF64, DataTypeF64Unit:
		return "Float64"
	case DataTypeExtendedFloat, DataTypeExtendedFloatUnit:
		return "ExtendedFloat"
	case DataTypeString:
		return "String"
	case DataTypeBool:
		return "Boolean"
	case DataTypeTimestamp:
		return "Timestamp"
	case DataTypeComplexF32:
		return "ComplexFloat32"
	case DataTypeComplexF64:
		return "ComplexFloat64"
	case DataTypeDAQmxRawData:
		return "DAQmxRawData"
	default:
		return fmt.Sprintf("Unknown(0x%X)", uint32(dt))
	}
}

// knownDataType reports whether dt is one of the type codes this library
// recognises for property/channel values.
func knownDataType(dt DataType) bool {
	switch dt {
	case DataTypeVoid, DataTypeI8, DataTypeI16, DataTypeI32, DataTypeI64,
		DataTypeU8, DataTypeU16, DataTypeU32, DataTypeU64,
		DataTypeF32, DataTypeF64, DataTypeExtendedFloat,
		DataTypeF32Unit, DataTypeF64Unit, DataTypeExtendedFloatUnit,
		DataTypeString, DataTypeBool, DataTypeTimestamp,
		DataTypeComplexF32, DataTypeComplexF64, DataTypeDAQmxRawData:
		return true
	default:
		return false
	}
}

// decodePropertyValue reads one property value of the given type from r.
// For the "with unit" float types, it also returns the embedded unit string:
// on disk these values are the float bits followed by a
// length-prefixed unit string; callers synthesise a sibling "unit_string"
// property from the returned unit.
func decodePropertyValue(dt DataType, r io.Reader, order binary.ByteOrder) (value any, unit string, hasUnit bool, err error) {
	switch dt {
	case DataTypeVoid:
		return nil, "", false, nil
	case DataTypeI8:
		v, err := readInt8(r)
		return v, "", false, err
	case DataTypeI16:
		v, err := readInt16(r, order)
		return v, "", false, err
	case DataTypeI32:
		v, err := readInt32(r, order)
		return v, "", false, err
	case DataTypeI64:
		v, err := readInt64(r, order)
		return v, "", false, err
	case DataTypeU8:
		v, err := readUint8(r)
		return v, "", false, err
	case DataTypeU16:
		v, err := readUint16(r, order)
		return v, "", false, err
	case DataTypeU32:
		v, err := readUint32(r, order)
		return v, "", false, err
	case DataTypeU64:
		v, err := readUint64(r, order)
		return v, "", false, err
	case DataTypeF32:
		v, err := readFloat32(r, order)
		return v, "", false, err
	case DataTypeF64:
		v, err := readFloat64(r, order)
		return v, "", false, err
	case DataTypeF32Unit:
		v, err := readFloat32(r, order)
		if err != nil {
			return nil, "", false, err
		}
		u, err := readString(r, order)
		return v, u, true, err
	case DataTypeF64Unit:
		v, err := readFloat64(r, order)
		if err != nil {
			return nil, "", false, err
		}
		u, err := readString(r, order)
		return v, u, true, err
	case DataTypeExtendedFloat:
		buf := make([]byte, 16)
		if err := readFull(r, buf); err != nil {
			return nil, "", false, err
		}
		return decodeExtendedFloat64(buf, order), "", false, nil
	case DataTypeExtendedFloatUnit:
		buf := make([]byte, 16)
		if err := readFull(r, buf); err != nil {
			return nil, "", false, err
		}
		v := decodeExtendedFloat64(buf, order)
		u, err := readString(r, order)
		return v, u, true, err
	case DataTypeString:
		v, err := readString(r, order)
		return v, "", false, err
	case DataTypeBool:
		v, err := readBool(r)
		return v, "", false, err
	case DataTypeTimestamp:
		v, err := readTimestamp(r, order)
		return v, "", false, err
	case DataTypeComplexF32:
		re, err := readFloat32(r, order)
		if err != nil {
			return nil, "", false, err
		}
		im, err := readFloat32(r, order)
		return complex(re, im), "", false, err
	case DataTypeComplexF64:
		re, err := readFloat64(r, order)
		if err != nil {
			return nil, "", false, err
		}
		im, err := readFloat64(r, order)
		return complex(re, im), "", false, err
	default:
		return nil, "", false, ErrUnknownTypeCode
	}
}

// encodePropertyValue appends the on-disk encoding of a single property
// value (without its type code) to buf. Writing "with unit" type codes
// directly is unsupported — callers set the unit via a sibling
// "unit_string" property instead (for example via [Writer.SetChannelProperty]).
func encodePropertyValue(buf []byte, order binary.ByteOrder, dt DataType, value any) ([]byte, error) {
	switch dt {
	case DataTypeVoid:
		return buf, nil
	case DataTypeI8:
		v, ok := value.(int8)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return append(buf, byte(v)), nil
	case DataTypeI16:
		v, ok := value.(int16)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendInt16(buf, order, v), nil
	case DataTypeI32:
		v, ok := value.(int32)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendInt32(buf, order, v), nil
	case DataTypeI64:
		v, ok := value.(int64)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendInt64(buf, order, v), nil
	case DataTypeU8:
		v, ok := value.(uint8)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return append(buf, v), nil
	case DataTypeU16:
		v, ok := value.(uint16)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendUint16(buf, order, v), nil
	case DataTypeU32:
		v, ok := value.(uint32)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendUint32(buf, order, v), nil
	case DataTypeU64:
		v, ok := value.(uint64)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendUint64(buf, order, v), nil
	case DataTypeF32:
		v, ok := value.(float32)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendFloat32(buf, order, v), nil
	case DataTypeF64:
		v, ok := value.(float64)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendFloat64(buf, order, v), nil
	case DataTypeString:
		v, ok := value.(string)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendString(buf, order, v), nil
	case DataTypeBool:
		v, ok := value.(bool)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendBool(buf, v), nil
	case DataTypeTimestamp:
		v, ok := value.(Timestamp)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return appendTimestamp(buf, order, v), nil
	case DataTypeComplexF32:
		v, ok := value.(complex64)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf = appendFloat32(buf, order, real(v))
		buf = appendFloat32(buf, order, imag(v))
		return buf, nil
	case DataTypeComplexF64:
		v, ok := value.(complex128)
		if !ok {
			return nil, ErrTypeMismatch
		}
		buf = appendFloat64(buf, order, real(v))
		buf = appendFloat64(buf, order, imag(v))
		return buf, nil
	case DataTypeExtendedFloat, DataTypeExtendedFloatUnit, DataTypeF32Unit, DataTypeF64Unit:
		return nil, ErrUnsupportedType
	default:
		return nil, ErrUnknownTypeCode
	}
}
