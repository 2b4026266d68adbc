package tdms

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ToC (table of contents) bits, always interpreted as little-endian
// regardless of the segment's own byte order.
const (
	tocMetaData        uint32 = 1 << 1
	tocNewObjList      uint32 = 1 << 2
	tocRawData         uint32 = 1 << 3
	tocInterleavedData uint32 = 1 << 5
	tocBigEndian       uint32 = 1 << 6
	tocDAQmxRawData    uint32 = 1 << 7
)

var (
	tagData  = [4]byte{'T', 'D', 'S', 'm'}
	tagIndex = [4]byte{'T', 'D', 'S', 'h'}
)

// segmentIncompleteSentinel marks a lead-in whose writer crashed before
// finishing the segment.
const segmentIncompleteSentinel uint64 = 0xFFFFFFFFFFFFFFFF

// Raw-index header sentinels. The two DAQmx scaler headers are the values
// real TDMS files carry; NI's own documentation is inconsistent about them.
const (
	rawIndexNoData              uint32 = 0xFFFFFFFF
	rawIndexMatchesPrevious     uint32 = 0x00000000
	rawIndexDAQmxFormatChanging uint32 = 0x00001269
	rawIndexDAQmxDigitalLine    uint32 = 0x00001369
)

// rawIndexLengthFixed/Variable are the conventional "index length" values
// written ahead of a full (non-sentinel, non-DAQmx) raw-index record. A
// reader never acts on this value beyond distinguishing it from the two
// sentinels above, so any value that can't collide with them is valid; we
// emit the values real TDMS files use.
const (
	rawIndexLengthFixed    uint32 = 20
	rawIndexLengthVariable uint32 = 28
)

// daqmxScalerSize is the byte size of one DAQmx raw-buffer scaler record:
// DataType, RawBufferIndex, RawByteOffsetWithinStride, SampleFormatBitmap,
// ScaleID, each a uint32.
const daqmxScalerSize = 20

type daqmxScalerType int

const (
	daqmxScalerNone daqmxScalerType = iota
	daqmxScalerFormatChanging
	daqmxScalerDigitalLine
)

type daqmxScaler struct {
	dataType                  DataType
	rawBufferIndex            uint32
	rawByteOffsetWithinStride uint32
	sampleFormatBitmap        uint32
	scaleID                   uint32
}

// rawIndex describes the raw-data layout of one object within one segment.
type rawIndex struct {
	scalerType daqmxScalerType

	// Populated for non-DAQmx layouts.
	dataType  DataType
	numValues uint64

	// totalSize is the per-chunk byte length this object contributes to the
	// segment's raw payload. For DAQmx layouts this is the opaque
	// "chunk_size" field.
	totalSize uint64

	// Populated for DAQmx layouts only; preserved verbatim for round-trip.
	daqmxDim uint32
	scalers  []daqmxScaler
	widths   []uint32
}

// sameLayout reports whether two raw indexes describe an identical
// per-chunk layout, used by the writer to decide whether it can encode
// "same as previous" instead of a full index. DAQmx layouts are never
// collapsed; the write path never alters a DAQmx raw layout
// (ErrDAQmxUnsupportedOperation).
func (idx *rawIndex) sameLayout(other *rawIndex) bool {
	if idx == nil || other == nil {
		return false
	}
	if idx.scalerType != daqmxScalerNone || other.scalerType != daqmxScalerNone {
		return false
	}
	return idx.dataType == other.dataType &&
		idx.numValues == other.numValues &&
		idx.totalSize == other.totalSize
}

// Raw-index decode outcome: distinguishes "no raw data for this object",
// "carry the previous segment's index forward unchanged", and "a full
// index follows".
const (
	rawIndexKindNone = iota
	rawIndexKindSamePrevious
	rawIndexKindFull
)

// leadIn is the decoded form of a segment's fixed 28-byte header.
type leadIn struct {
	containsMetadata     bool
	containsRawData      bool
	containsDAQmxRawData bool
	isInterleaved        bool
	bigEndian            bool
	newObjectList        bool

	version           uint32
	nextSegmentOffset uint64
	rawDataOffset     uint64
}

func (l leadIn) byteOrder() binary.ByteOrder {
	if l.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func tocFromLeadIn(l leadIn) uint32 {
	var toc uint32
	if l.containsMetadata {
		toc |= tocMetaData
	}
	if l.containsRawData {
		toc |= tocRawData
	}
	if l.containsDAQmxRawData {
		toc |= tocDAQmxRawData
	}
	if l.isInterleaved {
		toc |= tocInterleavedData
	}
	if l.bigEndian {
		toc |= tocBigEndian
	}
	if l.newObjectList {
		toc |= tocNewObjList
	}
	return toc
}

// decodeLeadIn reads and validates one segment lead-in. The ToC mask and
// every other lead-in scalar are always little-endian; kTocBigEndian
// governs only the meta-data and raw-data regions that follow.
func decodeLeadIn(raw []byte, expectIndex bool) (leadIn, error) {
	if len(raw) != leadInSize {
		return leadIn{}, fmt.Errorf("%w: lead-in must be %d bytes", ErrInvalidFileFormat, leadInSize)
	}

	wantTag := tagData
	if expectIndex {
		wantTag = tagIndex
	}
	if !bytes.Equal(raw[:4], wantTag[:]) {
		return leadIn{}, errors.Join(ErrInvalidFileFormat, ErrInvalidTag)
	}

	toc := binary.LittleEndian.Uint32(raw[4:8])
	l := leadIn{
		containsMetadata:     toc&tocMetaData != 0,
		containsRawData:      toc&tocRawData != 0,
		containsDAQmxRawData: toc&tocDAQmxRawData != 0,
		isInterleaved:        toc&tocInterleavedData != 0,
		bigEndian:            toc&tocBigEndian != 0,
		newObjectList:        toc&tocNewObjList != 0,
	}

	l.version = binary.LittleEndian.Uint32(raw[8:12])
	if l.version != Version2_0 && l.version != Version2_0Variant {
		return leadIn{}, ErrUnsupportedVersion
	}

	l.nextSegmentOffset = binary.LittleEndian.Uint64(raw[12:20])
	l.rawDataOffset = binary.LittleEndian.Uint64(raw[20:28])

	// Version 4712 predates the interleave and big-endian ToC flags;
	// whatever sits in those bit positions is not meaningful.
	if l.version == Version2_0 {
		l.isInterleaved = false
		l.bigEndian = false
	}

	return l, nil
}

// encodeLeadIn produces the 28-byte lead-in for a segment about to be
// written.
func encodeLeadIn(l leadIn, isIndex bool) []byte {
	tag := tagData
	if isIndex {
		tag = tagIndex
	}

	buf := make([]byte, 0, leadInSize)
	buf = append(buf, tag[:]...)
	buf = appendUint32(buf, binary.LittleEndian, tocFromLeadIn(l))
	buf = appendUint32(buf, binary.LittleEndian, l.version)
	buf = appendUint64(buf, binary.LittleEndian, l.nextSegmentOffset)
	buf = appendUint64(buf, binary.LittleEndian, l.rawDataOffset)
	return buf
}

func daqmxKindFromHeader(header uint32) daqmxScalerType {
	if header == rawIndexDAQmxDigitalLine {
		return daqmxScalerDigitalLine
	}
	return daqmxScalerFormatChanging
}

// decodeRawIndex decodes one object's raw-index record.
func decodeRawIndex(r *byteReader, order binary.ByteOrder, isInterleaved bool) (kind int, idx *rawIndex, err error) {
	header, err := r.readUint32(order)
	if err != nil {
		return 0, nil, err
	}

	switch header {
	case rawIndexNoData:
		return rawIndexKindNone, nil, nil
	case rawIndexMatchesPrevious:
		return rawIndexKindSamePrevious, nil, nil
	case rawIndexDAQmxFormatChanging, rawIndexDAQmxDigitalLine:
		idx = &rawIndex{scalerType: daqmxKindFromHeader(header)}
		if err := decodeDAQmxBody(r, order, idx); err != nil {
			return 0, nil, err
		}
		return rawIndexKindFull, idx, nil
	default:
		idx = &rawIndex{}

		dt, err := r.readUint32(order)
		if err != nil {
			return 0, nil, err
		}
		idx.dataType = DataType(dt)
		if !knownDataType(idx.dataType) {
			return 0, nil, fmt.Errorf("%w: raw data index has type 0x%X", ErrUnknownTypeCode, dt)
		}

		if idx.dataType == DataTypeString && isInterleaved {
			return 0, nil, fmt.Errorf(
				"%w: interleaved segments cannot contain variable-width data types",
				ErrInvalidFileFormat,
			)
		}

		dimension, err := r.readUint32(order)
		if err != nil {
			return 0, nil, err
		}
		if dimension != 1 {
			return 0, nil, fmt.Errorf("%w: raw data index dimension must be 1 in TDMS 2.0", ErrInvalidFileFormat)
		}

		idx.numValues, err = r.readUint64(order)
		if err != nil {
			return 0, nil, err
		}

		if idx.dataType.IsVariableSize() {
			idx.totalSize, err = r.readUint64(order)
			if err != nil {
				return 0, nil, err
			}
		} else {
			idx.totalSize = idx.numValues * uint64(idx.dataType.Size())
		}

		return rawIndexKindFull, idx, nil
	}
}

func decodeDAQmxBody(r *byteReader, order binary.ByteOrder, idx *rawIndex) error {
	sentinel, err := r.readUint32(order)
	if err != nil {
		return err
	}
	if sentinel != uint32(DataTypeDAQmxRawData) {
		return fmt.Errorf("%w: unexpected DAQmx raw-index data type sentinel", ErrInvalidFileFormat)
	}
	idx.dataType = DataTypeDAQmxRawData

	idx.daqmxDim, err = r.readUint32(order)
	if err != nil {
		return err
	}

	idx.totalSize, err = r.readUint64(order)
	if err != nil {
		return err
	}

	numScalers, err := r.readUint32(order)
	if err != nil {
		return err
	}
	idx.scalers = make([]daqmxScaler, numScalers)
	for i := range idx.scalers {
		scalerBytes, err := r.readBytes(daqmxScalerSize)
		if err != nil {
			return err
		}
		idx.scalers[i] = daqmxScaler{
			dataType:                  DataType(order.Uint32(scalerBytes)),
			rawBufferIndex:            order.Uint32(scalerBytes[4:8]),
			rawByteOffsetWithinStride: order.Uint32(scalerBytes[8:12]),
			sampleFormatBitmap:        order.Uint32(scalerBytes[12:16]),
			scaleID:                   order.Uint32(scalerBytes[16:20]),
		}
	}

	numWidths, err := r.readUint32(order)
	if err != nil {
		return err
	}
	idx.widths = make([]uint32, numWidths)
	for i := range idx.widths {
		idx.widths[i], err = r.readUint32(order)
		if err != nil {
			return err
		}
	}

	return nil
}

func encodeRawIndexSentinel(buf []byte, order binary.ByteOrder, header uint32) []byte {
	return appendUint32(buf, order, header)
}

func encodeRawIndexFull(buf []byte, order binary.ByteOrder, dt DataType, numValues uint64, totalSize uint64) []byte {
	length := rawIndexLengthFixed
	if dt.IsVariableSize() {
		length = rawIndexLengthVariable
	}
	buf = appendUint32(buf, order, length)
	buf = appendUint32(buf, order, uint32(dt))
	buf = appendUint32(buf, order, 1) // dimension, always 1 in TDMS 2.0
	buf = appendUint64(buf, order, numValues)
	if dt.IsVariableSize() {
		buf = appendUint64(buf, order, totalSize)
	}
	return buf
}

func encodeRawIndexDAQmx(buf []byte, order binary.ByteOrder, idx *rawIndex) []byte {
	header := rawIndexDAQmxFormatChanging
	if idx.scalerType == daqmxScalerDigitalLine {
		header = rawIndexDAQmxDigitalLine
	}

	buf = appendUint32(buf, order, header)
	buf = appendUint32(buf, order, uint32(DataTypeDAQmxRawData))
	buf = appendUint32(buf, order, idx.daqmxDim)
	buf = appendUint64(buf, order, idx.totalSize)

	buf = appendUint32(buf, order, uint32(len(idx.scalers)))
	for _, s := range idx.scalers {
		buf = appendUint32(buf, order, uint32(s.dataType))
		buf = appendUint32(buf, order, s.rawBufferIndex)
		buf = appendUint32(buf, order, s.rawByteOffsetWithinStride)
		buf = appendUint32(buf, order, s.sampleFormatBitmap)
		buf = appendUint32(buf, order, s.scaleID)
	}

	buf = appendUint32(buf, order, uint32(len(idx.widths)))
	for _, w := range idx.widths {
		buf = appendUint32(buf, order, w)
	}

	return buf
}

// metaObject is one object record as it appears (or is about to appear) in
// a segment's meta-data region.
type metaObject struct {
	path       string
	rawKind    int
	index      *rawIndex
	properties *orderedProperties
}

func decodeMetaObject(r *byteReader, order binary.ByteOrder, isInterleaved bool) (*metaObject, error) {
	path, err := r.readString(order)
	if err != nil {
		return nil, err
	}

	kind, idx, err := decodeRawIndex(r, order, isInterleaved)
	if err != nil {
		return nil, err
	}

	numProps, err := r.readUint32(order)
	if err != nil {
		return nil, fmt.Errorf("failed to read property count for %q: %w", path, err)
	}

	props := newOrderedProperties()
	for i := uint32(0); i < numProps; i++ {
		name, err := r.readString(order)
		if err != nil {
			return nil, err
		}

		typeCode, err := r.readUint32(order)
		if err != nil {
			return nil, err
		}
		dt := DataType(typeCode)
		if !knownDataType(dt) {
			return nil, fmt.Errorf("%w: property %q on %q has type 0x%X", ErrUnknownTypeCode, name, path, typeCode)
		}

		value, unit, hasUnit, err := decodePropertyValue(dt, r, order)
		if err != nil {
			return nil, fmt.Errorf("failed to read property %q on %q: %w", name, path, err)
		}

		propType := dt
		switch dt {
		case DataTypeF32Unit:
			propType = DataTypeF32
		case DataTypeF64Unit:
			propType = DataTypeF64
		case DataTypeExtendedFloatUnit:
			propType = DataTypeExtendedFloat
		}

		props.set(Property{Name: name, TypeCode: propType, Value: value})
		if hasUnit {
			props.set(Property{Name: "unit_string", TypeCode: DataTypeString, Value: unit})
		}
	}

	return &metaObject{path: path, rawKind: kind, index: idx, properties: props}, nil
}

// encodeMetaObject appends one object's meta-data record (path, raw-index,
// properties) to buf.
func encodeMetaObject(buf []byte, order binary.ByteOrder, obj *metaObject, props []Property) ([]byte, error) {
	buf = appendString(buf, order, obj.path)

	switch obj.rawKind {
	case rawIndexKindNone:
		buf = encodeRawIndexSentinel(buf, order, rawIndexNoData)
	case rawIndexKindSamePrevious:
		buf = encodeRawIndexSentinel(buf, order, rawIndexMatchesPrevious)
	case rawIndexKindFull:
		if obj.index.scalerType != daqmxScalerNone {
			buf = encodeRawIndexDAQmx(buf, order, obj.index)
		} else {
			buf = encodeRawIndexFull(buf, order, obj.index.dataType, obj.index.numValues, obj.index.totalSize)
		}
	}

	buf = appendUint32(buf, order, uint32(len(props)))
	for _, p := range props {
		buf = appendString(buf, order, p.Name)
		buf = appendUint32(buf, order, uint32(p.TypeCode))

		var err error
		buf, err = encodePropertyValue(buf, order, p.TypeCode, p.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode property %q on %q: %w", p.Name, obj.path, err)
		}
	}

	return buf, nil
}

// byteReader is a tiny bounds-checked cursor over an in-memory meta-data
// buffer. Segment meta-data is always read in full before being parsed (the
// segment scan reads meta whole and skips raw by length), so decoding from a
// byte slice rather than an io.Reader avoids a syscall per field.
type byteReader struct {
	buf []byte
	pos int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

// Read implements [io.Reader] so property values can be decoded straight
// off the cursor.
func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.buf) {
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.pos:])
	r.pos += n
	return n, nil
}

func (r *byteReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w: unexpected end of meta-data", ErrReadFailed)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) readUint32(order binary.ByteOrder) (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

func (r *byteReader) readUint64(order binary.ByteOrder) (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

func (r *byteReader) readString(order binary.ByteOrder) (string, error) {
	n, err := r.readUint32(order)
	if err != nil {
		return "", err
	}
	if n > maxStringLength {
		return "", ErrLengthOverflow
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), nil
}
