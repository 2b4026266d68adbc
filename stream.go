package tdms

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
)

func (r *Reader) byteOrderFor(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func checkChannelType(ch *Channel, want DataType) error {
	if ch.DataType != want {
		return fmt.Errorf("%w: channel %q has type %s, not %s", ErrTypeMismatch, ch.path, ch.DataType, want)
	}
	return nil
}

// readFixed reads every value of a fixed-size-type channel.
func readFixed[T any](r *Reader, ch *Channel, elemSize int, decode func([]byte, binary.ByteOrder) T) ([]T, error) {
	return readFixedRange(r, ch, elemSize, 0, ch.totalNumValues, decode)
}

// readFixedRange decodes the half-open value range [start, end) of a
// fixed-size-type channel, walking only the chunks that overlap it. Values
// contiguous within one chunk repetition are fetched with a single read.
// The range is clamped to the channel's length.
func readFixedRange[T any](r *Reader, ch *Channel, elemSize int, start, end uint64, decode func([]byte, binary.ByteOrder) T) ([]T, error) {
	if end > ch.totalNumValues {
		end = ch.totalNumValues
	}
	if start >= end {
		return []T{}, nil
	}
	out := make([]T, 0, end-start)

	var base uint64
	for _, c := range ch.chunks {
		total := c.numChunks * c.valuesPerChunk
		lo, hi := start, end
		if lo < base {
			lo = base
		}
		if hi > base+total {
			hi = base + total
		}

		order := r.byteOrderFor(c.bigEndian)
		for i := lo; i < hi; {
			rel := i - base
			repeat := rel / c.valuesPerChunk
			within := rel % c.valuesPerChunk
			runEnd := (repeat + 1) * c.valuesPerChunk
			if runEnd > hi-base {
				runEnd = hi - base
			}
			count := runEnd - rel

			buf := make([]byte, count*uint64(elemSize))
			offset := c.dataOffset + int64(repeat)*c.chunkStride + int64(within)*int64(elemSize)
			if _, err := r.data.ReadAt(buf, offset); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
			}
			for b := 0; b < len(buf); b += elemSize {
				out = append(out, decode(buf[b:b+elemSize], order))
			}
			i += count
		}
		base += total
	}

	return out, nil
}

// streamFixed is the [iter.Seq2] counterpart of readFixed, decoding values
// lazily so a caller can stop early without reading the whole channel.
func streamFixed[T any](r *Reader, ch *Channel, elemSize int, decode func([]byte, binary.ByteOrder) T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		buf := make([]byte, elemSize)

		for _, c := range ch.chunks {
			order := r.byteOrderFor(c.bigEndian)
			total := c.numChunks * c.valuesPerChunk

			for i := uint64(0); i < total; i++ {
				repeat := i / c.valuesPerChunk
				within := i % c.valuesPerChunk
				offset := c.dataOffset + int64(repeat)*c.chunkStride + int64(within)*int64(elemSize)

				if _, err := r.data.ReadAt(buf, offset); err != nil {
					var zero T
					yield(zero, fmt.Errorf("%w: %w", ErrReadFailed, err))
					return
				}
				if !yield(decode(buf, order), nil) {
					return
				}
			}
		}
	}
}

// ReadInt8 reads every value of an int8 channel.
func (r *Reader) ReadInt8(ch *Channel) ([]int8, error) {
	if err := checkChannelType(ch, DataTypeI8); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 1, func(b []byte, _ binary.ByteOrder) int8 { return int8(b[0]) })
}

// ReadInt16 reads every value of an int16 channel.
func (r *Reader) ReadInt16(ch *Channel) ([]int16, error) {
	if err := checkChannelType(ch, DataTypeI16); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 2, func(b []byte, o binary.ByteOrder) int16 { return int16(o.Uint16(b)) })
}

// ReadInt32 reads every value of an int32 channel.
func (r *Reader) ReadInt32(ch *Channel) ([]int32, error) {
	if err := checkChannelType(ch, DataTypeI32); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 4, func(b []byte, o binary.ByteOrder) int32 { return int32(o.Uint32(b)) })
}

// ReadInt64 reads every value of an int64 channel.
func (r *Reader) ReadInt64(ch *Channel) ([]int64, error) {
	if err := checkChannelType(ch, DataTypeI64); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 8, func(b []byte, o binary.ByteOrder) int64 { return int64(o.Uint64(b)) })
}

// ReadUint8 reads every value of a uint8 channel.
func (r *Reader) ReadUint8(ch *Channel) ([]uint8, error) {
	if err := checkChannelType(ch, DataTypeU8); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 1, func(b []byte, _ binary.ByteOrder) uint8 { return b[0] })
}

// ReadUint16 reads every value of a uint16 channel.
func (r *Reader) ReadUint16(ch *Channel) ([]uint16, error) {
	if err := checkChannelType(ch, DataTypeU16); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 2, func(b []byte, o binary.ByteOrder) uint16 { return o.Uint16(b) })
}

// ReadUint32 reads every value of a uint32 channel.
func (r *Reader) ReadUint32(ch *Channel) ([]uint32, error) {
	if err := checkChannelType(ch, DataTypeU32); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 4, func(b []byte, o binary.ByteOrder) uint32 { return o.Uint32(b) })
}

// ReadUint64 reads every value of a uint64 channel.
func (r *Reader) ReadUint64(ch *Channel) ([]uint64, error) {
	if err := checkChannelType(ch, DataTypeU64); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 8, func(b []byte, o binary.ByteOrder) uint64 { return o.Uint64(b) })
}

// ReadFloat32 reads every value of a float32 channel.
func (r *Reader) ReadFloat32(ch *Channel) ([]float32, error) {
	if err := checkChannelType(ch, DataTypeF32); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 4, func(b []byte, o binary.ByteOrder) float32 {
		return math.Float32frombits(o.Uint32(b))
	})
}

// ReadFloat64 reads every value of a float64 channel.
func (r *Reader) ReadFloat64(ch *Channel) ([]float64, error) {
	if err := checkChannelType(ch, DataTypeF64); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 8, func(b []byte, o binary.ByteOrder) float64 {
		return math.Float64frombits(o.Uint64(b))
	})
}

// ReadBool reads every value of a boolean channel.
func (r *Reader) ReadBool(ch *Channel) ([]bool, error) {
	if err := checkChannelType(ch, DataTypeBool); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 1, func(b []byte, _ binary.ByteOrder) bool { return b[0] != 0 })
}

// ReadTimestamp reads every value of a timestamp channel.
func (r *Reader) ReadTimestamp(ch *Channel) ([]Timestamp, error) {
	if err := checkChannelType(ch, DataTypeTimestamp); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 16, func(b []byte, o binary.ByteOrder) Timestamp {
		return Timestamp{Seconds: int64(o.Uint64(b[0:8])), Fraction: o.Uint64(b[8:16])}
	})
}

// ReadComplex64 reads every value of a complex64 channel.
func (r *Reader) ReadComplex64(ch *Channel) ([]complex64, error) {
	if err := checkChannelType(ch, DataTypeComplexF32); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 8, func(b []byte, o binary.ByteOrder) complex64 {
		re := math.Float32frombits(o.Uint32(b[0:4]))
		im := math.Float32frombits(o.Uint32(b[4:8]))
		return complex(re, im)
	})
}

// ReadComplex128 reads every value of a complex128 channel.
func (r *Reader) ReadComplex128(ch *Channel) ([]complex128, error) {
	if err := checkChannelType(ch, DataTypeComplexF64); err != nil {
		return nil, err
	}
	return readFixed(r, ch, 16, func(b []byte, o binary.ByteOrder) complex128 {
		re := math.Float64frombits(o.Uint64(b[0:8]))
		im := math.Float64frombits(o.Uint64(b[8:16]))
		return complex(re, im)
	})
}

// ReadInt8Range reads the half-open value range [start, end) of an int8
// channel, clamped to the channel's length. Only chunks overlapping the
// range are touched; the same holds for every other *Range reader below.
func (r *Reader) ReadInt8Range(ch *Channel, start, end uint64) ([]int8, error) {
	if err := checkChannelType(ch, DataTypeI8); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 1, start, end, func(b []byte, _ binary.ByteOrder) int8 { return int8(b[0]) })
}

// ReadInt16Range reads the half-open value range [start, end) of an int16 channel.
func (r *Reader) ReadInt16Range(ch *Channel, start, end uint64) ([]int16, error) {
	if err := checkChannelType(ch, DataTypeI16); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 2, start, end, func(b []byte, o binary.ByteOrder) int16 { return int16(o.Uint16(b)) })
}

// ReadInt32Range reads the half-open value range [start, end) of an int32 channel.
func (r *Reader) ReadInt32Range(ch *Channel, start, end uint64) ([]int32, error) {
	if err := checkChannelType(ch, DataTypeI32); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 4, start, end, func(b []byte, o binary.ByteOrder) int32 { return int32(o.Uint32(b)) })
}

// ReadInt64Range reads the half-open value range [start, end) of an int64 channel.
func (r *Reader) ReadInt64Range(ch *Channel, start, end uint64) ([]int64, error) {
	if err := checkChannelType(ch, DataTypeI64); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 8, start, end, func(b []byte, o binary.ByteOrder) int64 { return int64(o.Uint64(b)) })
}

// ReadUint8Range reads the half-open value range [start, end) of a uint8 channel.
func (r *Reader) ReadUint8Range(ch *Channel, start, end uint64) ([]uint8, error) {
	if err := checkChannelType(ch, DataTypeU8); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 1, start, end, func(b []byte, _ binary.ByteOrder) uint8 { return b[0] })
}

// ReadUint16Range reads the half-open value range [start, end) of a uint16 channel.
func (r *Reader) ReadUint16Range(ch *Channel, start, end uint64) ([]uint16, error) {
	if err := checkChannelType(ch, DataTypeU16); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 2, start, end, func(b []byte, o binary.ByteOrder) uint16 { return o.Uint16(b) })
}

// ReadUint32Range reads the half-open value range [start, end) of a uint32 channel.
func (r *Reader) ReadUint32Range(ch *Channel, start, end uint64) ([]uint32, error) {
	if err := checkChannelType(ch, DataTypeU32); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 4, start, end, func(b []byte, o binary.ByteOrder) uint32 { return o.Uint32(b) })
}

// ReadUint64Range reads the half-open value range [start, end) of a uint64 channel.
func (r *Reader) ReadUint64Range(ch *Channel, start, end uint64) ([]uint64, error) {
	if err := checkChannelType(ch, DataTypeU64); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 8, start, end, func(b []byte, o binary.ByteOrder) uint64 { return o.Uint64(b) })
}

// ReadFloat32Range reads the half-open value range [start, end) of a float32 channel.
func (r *Reader) ReadFloat32Range(ch *Channel, start, end uint64) ([]float32, error) {
	if err := checkChannelType(ch, DataTypeF32); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 4, start, end, func(b []byte, o binary.ByteOrder) float32 {
		return math.Float32frombits(o.Uint32(b))
	})
}

// ReadFloat64Range reads the half-open value range [start, end) of a float64 channel.
func (r *Reader) ReadFloat64Range(ch *Channel, start, end uint64) ([]float64, error) {
	if err := checkChannelType(ch, DataTypeF64); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 8, start, end, func(b []byte, o binary.ByteOrder) float64 {
		return math.Float64frombits(o.Uint64(b))
	})
}

// ReadBoolRange reads the half-open value range [start, end) of a boolean channel.
func (r *Reader) ReadBoolRange(ch *Channel, start, end uint64) ([]bool, error) {
	if err := checkChannelType(ch, DataTypeBool); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 1, start, end, func(b []byte, _ binary.ByteOrder) bool { return b[0] != 0 })
}

// ReadTimestampRange reads the half-open value range [start, end) of a timestamp channel.
func (r *Reader) ReadTimestampRange(ch *Channel, start, end uint64) ([]Timestamp, error) {
	if err := checkChannelType(ch, DataTypeTimestamp); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 16, start, end, func(b []byte, o binary.ByteOrder) Timestamp {
		return Timestamp{Seconds: int64(o.Uint64(b[0:8])), Fraction: o.Uint64(b[8:16])}
	})
}

// ReadComplex64Range reads the half-open value range [start, end) of a complex64 channel.
func (r *Reader) ReadComplex64Range(ch *Channel, start, end uint64) ([]complex64, error) {
	if err := checkChannelType(ch, DataTypeComplexF32); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 8, start, end, func(b []byte, o binary.ByteOrder) complex64 {
		re := math.Float32frombits(o.Uint32(b[0:4]))
		im := math.Float32frombits(o.Uint32(b[4:8]))
		return complex(re, im)
	})
}

// ReadComplex128Range reads the half-open value range [start, end) of a complex128 channel.
func (r *Reader) ReadComplex128Range(ch *Channel, start, end uint64) ([]complex128, error) {
	if err := checkChannelType(ch, DataTypeComplexF64); err != nil {
		return nil, err
	}
	return readFixedRange(r, ch, 16, start, end, func(b []byte, o binary.ByteOrder) complex128 {
		re := math.Float64frombits(o.Uint64(b[0:8]))
		im := math.Float64frombits(o.Uint64(b[8:16]))
		return complex(re, im)
	})
}

// StreamFloat64 lazily yields every value of a float64 channel, stopping
// early if the consuming range-over-func loop breaks.
func (r *Reader) StreamFloat64(ch *Channel) (iter.Seq2[float64, error], error) {
	if err := checkChannelType(ch, DataTypeF64); err != nil {
		return nil, err
	}
	return streamFixed(r, ch, 8, func(b []byte, o binary.ByteOrder) float64 {
		return math.Float64frombits(o.Uint64(b))
	}), nil
}

// ReadStrings reads every value of a string channel. String channels store
// a per-chunk table of starting offsets into the concatenated string block
// ahead of the block itself, so unlike the fixed-size readers above this
// walks the table explicitly rather than striding by a constant element
// size.
func (r *Reader) ReadStrings(ch *Channel) ([]string, error) {
	return r.ReadStringsRange(ch, 0, ch.totalNumValues)
}

// ReadStringsRange reads the half-open value range [start, end) of a
// string channel, clamped to the channel's length. Chunks entirely outside
// the range are skipped.
func (r *Reader) ReadStringsRange(ch *Channel, start, end uint64) ([]string, error) {
	if err := checkChannelType(ch, DataTypeString); err != nil {
		return nil, err
	}
	if end > ch.totalNumValues {
		end = ch.totalNumValues
	}
	if start >= end {
		return []string{}, nil
	}

	out := make([]string, 0, end-start)

	var base uint64
	for _, c := range ch.chunks {
		order := r.byteOrderFor(c.bigEndian)

		for repeat := uint64(0); repeat < c.numChunks; repeat++ {
			repeatBase := base + repeat*c.valuesPerChunk
			if repeatBase+c.valuesPerChunk <= start || repeatBase >= end {
				continue
			}

			repeatStart := c.dataOffset + int64(repeat)*c.chunkStride

			tableBuf := make([]byte, 4*c.valuesPerChunk)
			if _, err := r.data.ReadAt(tableBuf, repeatStart); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
			}

			offsets := make([]uint32, c.valuesPerChunk)
			for i := range offsets {
				offsets[i] = order.Uint32(tableBuf[i*4 : i*4+4])
			}

			dataStart := repeatStart + int64(len(tableBuf))
			stringsBuf := make([]byte, c.chunkByteSize-int64(len(tableBuf)))
			if _, err := r.data.ReadAt(stringsBuf, dataStart); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
			}

			for i, strStart := range offsets {
				strEnd := uint32(len(stringsBuf))
				if i+1 < len(offsets) {
					strEnd = offsets[i+1]
				}
				if strStart > strEnd || uint64(strEnd) > uint64(len(stringsBuf)) {
					return nil, fmt.Errorf("%w: corrupt string offset table", ErrInvalidFileFormat)
				}
				idx := repeatBase + uint64(i)
				if idx < start || idx >= end {
					continue
				}
				out = append(out, string(stringsBuf[strStart:strEnd]))
			}
		}
		base += c.numChunks * c.valuesPerChunk
	}

	return out, nil
}

// readChannelRawBytes returns a channel's raw payload bytes concatenated
// across every segment, without decoding. The defragmenter uses this to
// carry DAQmx channels through byte-for-byte.
func (r *Reader) readChannelRawBytes(ch *Channel) ([]byte, error) {
	var out []byte
	for _, c := range ch.chunks {
		for repeat := uint64(0); repeat < c.numChunks; repeat++ {
			buf := make([]byte, c.chunkByteSize)
			if _, err := r.data.ReadAt(buf, c.dataOffset+int64(repeat)*c.chunkStride); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
			}
			out = append(out, buf...)
		}
	}
	return out, nil
}
