package tdms

import (
	"errors"
	"testing"
	"time"
)

func TestNewPropertyInfersType(t *testing.T) {
	tests := []struct {
		value any
		want  DataType
	}{
		{int8(1), DataTypeI8},
		{int16(1), DataTypeI16},
		{int32(1), DataTypeI32},
		{int64(1), DataTypeI64},
		{uint8(1), DataTypeU8},
		{uint16(1), DataTypeU16},
		{uint32(1), DataTypeU32},
		{uint64(1), DataTypeU64},
		{float32(1), DataTypeF32},
		{float64(1), DataTypeF64},
		{"hello", DataTypeString},
		{true, DataTypeBool},
		{Timestamp{}, DataTypeTimestamp},
		{complex64(1), DataTypeComplexF32},
		{complex128(1), DataTypeComplexF64},
	}

	for _, tt := range tests {
		p, err := NewProperty("x", tt.value)
		if err != nil {
			t.Fatalf("NewProperty(%v) error = %v", tt.value, err)
		}
		if p.TypeCode != tt.want {
			t.Errorf("NewProperty(%v).TypeCode = %v, want %v", tt.value, p.TypeCode, tt.want)
		}
	}
}

func TestNewPropertyUnsupportedType(t *testing.T) {
	if _, err := NewProperty("x", struct{}{}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("NewProperty() error = %v, want %v", err, ErrUnsupportedType)
	}
}

func TestPropertyAccessorsMatchType(t *testing.T) {
	p := Property{Name: "x", TypeCode: DataTypeF64, Value: float64(3.5)}

	if v, err := p.AsFloat64(); err != nil || v != 3.5 {
		t.Errorf("AsFloat64() = %v, %v, want 3.5, nil", v, err)
	}
	if _, err := p.AsInt32(); !errors.Is(err, ErrIncorrectType) {
		t.Errorf("AsInt32() error = %v, want %v", err, ErrIncorrectType)
	}
}

func TestPropertyAsTime(t *testing.T) {
	want := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	p := Property{Name: "when", TypeCode: DataTypeTimestamp, Value: TimestampFromTime(want)}

	got, err := p.AsTime()
	if err != nil {
		t.Fatalf("AsTime() error = %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("AsTime() = %v, want %v", got, want)
	}
}

func TestPropertyString(t *testing.T) {
	p := Property{Name: "count", TypeCode: DataTypeI32, Value: int32(7)}
	if got, want := p.String(), "count: 7"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
