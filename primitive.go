package tdms

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"math/big"
	"time"
	"unicode/utf8"
)

// maxStringLength bounds length-prefixed string reads so a corrupt or
// adversarial length prefix can't trigger a multi-gigabyte allocation.
const maxStringLength = 1 << 30

// leadInSize is the fixed byte length of a segment's lead-in.
const leadInSize = 28

func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return errors.Join(ErrReadFailed, err)
	}
	return nil
}

func readUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readUint16(r io.Reader, order binary.ByteOrder) (uint16, error) {
	var buf [2]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return order.Uint16(buf[:]), nil
}

func readUint32(r io.Reader, order binary.ByteOrder) (uint32, error) {
	var buf [4]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return order.Uint32(buf[:]), nil
}

func readUint64(r io.Reader, order binary.ByteOrder) (uint64, error) {
	var buf [8]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return order.Uint64(buf[:]), nil
}

func readInt8(r io.Reader) (int8, error) {
	v, err := readUint8(r)
	return int8(v), err
}

func readInt16(r io.Reader, order binary.ByteOrder) (int16, error) {
	v, err := readUint16(r, order)
	return int16(v), err
}

func readInt32(r io.Reader, order binary.ByteOrder) (int32, error) {
	v, err := readUint32(r, order)
	return int32(v), err
}

func readInt64(r io.Reader, order binary.ByteOrder) (int64, error) {
	v, err := readUint64(r, order)
	return int64(v), err
}

func readFloat32(r io.Reader, order binary.ByteOrder) (float32, error) {
	v, err := readUint32(r, order)
	return math.Float32frombits(v), err
}

func readFloat64(r io.Reader, order binary.ByteOrder) (float64, error) {
	v, err := readUint64(r, order)
	return math.Float64frombits(v), err
}

func readBool(r io.Reader) (bool, error) {
	v, err := readUint8(r)
	return v != 0, err
}

// readString decodes a length-prefixed UTF-8 string. The
// length prefix is 32-bit and uses the segment's byte order. A single
// trailing NUL included within the declared length is tolerated and
// stripped.
func readString(r io.Reader, order binary.ByteOrder) (string, error) {
	n, err := readUint32(r, order)
	if err != nil {
		return "", err
	}
	if n > maxStringLength {
		return "", ErrLengthOverflow
	}

	buf := make([]byte, n)
	if err := readFull(r, buf); err != nil {
		return "", err
	}

	if len(buf) > 0 && buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}

	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}

	return string(buf), nil
}

// appendUint16 etc. append a fixed-width scalar to buf in the given byte
// order, returning the extended slice. These mirror binary.ByteOrder's
// PutUintNN methods but avoid the caller needing a scratch array of its own.

func appendUint16(buf []byte, order binary.ByteOrder, v uint16) []byte {
	var tmp [2]byte
	order.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, order binary.ByteOrder, v uint32) []byte {
	var tmp [4]byte
	order.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, order binary.ByteOrder, v uint64) []byte {
	var tmp [8]byte
	order.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendInt16(buf []byte, order binary.ByteOrder, v int16) []byte {
	return appendUint16(buf, order, uint16(v))
}

func appendInt32(buf []byte, order binary.ByteOrder, v int32) []byte {
	return appendUint32(buf, order, uint32(v))
}

func appendInt64(buf []byte, order binary.ByteOrder, v int64) []byte {
	return appendUint64(buf, order, uint64(v))
}

func appendFloat32(buf []byte, order binary.ByteOrder, v float32) []byte {
	return appendUint32(buf, order, math.Float32bits(v))
}

func appendFloat64(buf []byte, order binary.ByteOrder, v float64) []byte {
	return appendUint64(buf, order, math.Float64bits(v))
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendString(buf []byte, order binary.ByteOrder, s string) []byte {
	raw := []byte(s)
	buf = appendUint32(buf, order, uint32(len(raw)))
	return append(buf, raw...)
}

// Timestamp is a TDMS timestamp: whole seconds since the TDMS epoch
// (1904-01-01 00:00:00 UTC) plus a fractional remainder in units of 2⁻⁶⁴
// seconds. This retains far more precision than [time.Time]'s nanosecond
// resolution; use [Timestamp.AsTime] only when that loss is acceptable.
type Timestamp struct {
	Seconds  int64
	Fraction uint64
}

// tdmsEpochOffset converts a TDMS epoch (1904-01-01) second count to a Unix
// epoch (1970-01-01) second count when added.
const tdmsEpochOffset int64 = -2_082_844_800

// AsTime converts the timestamp to a [time.Time], rounding the fraction to
// the nearest nanosecond.
func (t Timestamp) AsTime() time.Time {
	ns := new(big.Int).SetUint64(t.Fraction)
	ns.Mul(ns, big.NewInt(1_000_000_000))
	ns.Add(ns, new(big.Int).Lsh(big.NewInt(1), 63))
	ns.Rsh(ns, 64)
	return time.Unix(t.Seconds+tdmsEpochOffset, ns.Int64()).UTC()
}

// TimestampFromTime converts a [time.Time] to the TDMS timestamp format.
func TimestampFromTime(t time.Time) Timestamp {
	u := t.UTC()
	frac := new(big.Int).SetInt64(int64(u.Nanosecond()))
	frac.Lsh(frac, 64)
	frac.Div(frac, big.NewInt(1_000_000_000))
	return Timestamp{
		Seconds:  u.Unix() - tdmsEpochOffset,
		Fraction: frac.Uint64(),
	}
}

func readTimestamp(r io.Reader, order binary.ByteOrder) (Timestamp, error) {
	seconds, err := readUint64(r, order)
	if err != nil {
		return Timestamp{}, err
	}
	fraction, err := readUint64(r, order)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Seconds: int64(seconds), Fraction: fraction}, nil
}

func appendTimestamp(buf []byte, order binary.ByteOrder, ts Timestamp) []byte {
	buf = appendUint64(buf, order, uint64(ts.Seconds))
	buf = appendUint64(buf, order, ts.Fraction)
	return buf
}

// decodeExtendedFloat64 best-effort decodes a 16-byte IEEE 754 binary128
// value into a float64; full extended-precision round-trip is not
// supported. Precision beyond float64 is discarded.
func decodeExtendedFloat64(data []byte, order binary.ByteOrder) float64 {
	be := make([]byte, 16)
	copy(be, data)
	if order == binary.LittleEndian {
		for i, j := 0, len(be)-1; i < j; i, j = i+1, j-1 {
			be[i], be[j] = be[j], be[i]
		}
	}

	sign := (be[0] >> 7) & 1
	exponent := uint16(be[0]&0x7F)<<8 | uint16(be[1])

	mantissa := new(big.Int)
	for _, b := range be[2:] {
		mantissa.Lsh(mantissa, 8)
		mantissa.Or(mantissa, big.NewInt(int64(b)))
	}

	if exponent == 0 && mantissa.Sign() == 0 {
		if sign == 1 {
			return math.Copysign(0, -1)
		}
		return 0
	}
	if exponent == 0x7FFF {
		if mantissa.Sign() == 0 {
			if sign == 1 {
				return math.Inf(-1)
			}
			return math.Inf(1)
		}
		return math.NaN()
	}

	shift := new(big.Int).Lsh(big.NewInt(1), 112)
	mantissaFloat := new(big.Float).SetInt(mantissa)
	mantissaFloat.Quo(mantissaFloat, new(big.Float).SetInt(shift))

	result := new(big.Float).SetPrec(200)
	if exponent == 0 {
		// Subnormal: no implicit leading bit, unbiased exponent is -16382.
		result.Mul(mantissaFloat, new(big.Float).SetMantExp(big.NewFloat(1), -16382))
	} else {
		mantissaFloat.Add(mantissaFloat, big.NewFloat(1))
		result.Mul(mantissaFloat, new(big.Float).SetMantExp(big.NewFloat(1), int(exponent)-16383))
	}

	if sign == 1 {
		result.Neg(result)
	}

	f64, _ := result.Float64()
	return f64
}
