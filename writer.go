package tdms

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"
)

// EffectiveState tracks everything a [Writer] needs to remember between
// flushes to decide what a new segment must repeat versus what a reader
// can be expected to carry forward on its own: the object creation order,
// the channel order of the previous segment's raw payload, each channel's
// last-written raw layout, and each object's last-emitted property values.
type EffectiveState struct {
	objectOrder  []string
	rawOrder     []string
	lastRawIndex map[string]*rawIndex
	properties   map[string]*orderedProperties
}

func newEffectiveState() *EffectiveState {
	return &EffectiveState{
		lastRawIndex: make(map[string]*rawIndex),
		properties:   make(map[string]*orderedProperties),
	}
}

func (s *EffectiveState) propsFor(path string) *orderedProperties {
	p, ok := s.properties[path]
	if !ok {
		p = newOrderedProperties()
		s.properties[path] = p
	}
	return p
}

type writerConfig struct {
	bigEndian      bool
	interleaved    bool
	companionIdx   bool
	indexWriter    io.Writer
	flushThreshold int
}

// WriterOption configures a [Writer] constructed by [Create] or [NewWriter].
type WriterOption func(*writerConfig)

// WithWriterBigEndian selects big-endian encoding for the meta-data and raw
// regions of every segment this writer emits. The lead-in itself is always
// little-endian regardless of this setting.
func WithWriterBigEndian(enabled bool) WriterOption {
	return func(c *writerConfig) { c.bigEndian = enabled }
}

// WithWriterInterleaved selects interleaved raw-data layout. String
// channels cannot be written while this is enabled.
func WithWriterInterleaved(enabled bool) WriterOption {
	return func(c *writerConfig) { c.interleaved = enabled }
}

// WithCompanionIndex makes [Create] also maintain a "<basename>.tdms_index"
// file alongside the data file.
func WithCompanionIndex(enabled bool) WriterOption {
	return func(c *writerConfig) { c.companionIdx = enabled }
}

// WithIndexWriter attaches an explicit destination for index-file-style
// meta-data (lead-in plus meta-data, no raw bytes), for callers using
// [NewWriter] directly rather than [Create].
func WithIndexWriter(w io.Writer) WriterOption {
	return func(c *writerConfig) { c.indexWriter = w }
}

// WithFlushThreshold makes the writer flush a segment automatically once
// the staged raw data reaches the given byte size. Zero (the default)
// disables automatic flushing; segments are then cut only by explicit
// [Writer.Flush] and [Writer.Close] calls.
func WithFlushThreshold(bytes int) WriterOption {
	return func(c *writerConfig) { c.flushThreshold = bytes }
}

// Writer is an incremental TDMS writer. Each call to [Writer.Flush] (and
// the implicit flush inside [Writer.Close]) emits exactly one segment
// containing whatever properties and channel data have been queued since
// the previous flush.
//
// Segments are emitted incrementally: when a flush writes the same
// channels in the same order as the previous segment, the object list is
// inherited (kTocNewObjList stays clear) and only objects whose raw layout
// or property values actually changed are re-emitted, with an unchanged
// layout collapsed to the "matches previous segment" raw-index sentinel. A
// flush that repeats the previous segment exactly therefore carries no
// meta-data region at all. The append-in-place lead-in patch some TDMS
// writers use to extend the most recent segment is not performed; [Reader]
// still fully supports files produced by writers that do use it.
type Writer struct {
	data   io.Writer
	dataC  io.Closer
	indexW io.Writer
	indexC io.Closer

	bigEndian      bool
	interleaved    bool
	flushThreshold int

	state *EffectiveState

	channelType  map[string]DataType
	groupCreated map[string]bool

	pendingProps map[string]*orderedProperties
	pendingData  map[string]*pendingChannelData
	pendingOrder []string // channels with staged data, in first-write order
	pendingBytes int

	segmentsWritten int
	closed          bool
}

type pendingChannelData struct {
	numValues   uint64
	payload     []byte    // fixed-size types and DAQmx: concatenated raw bytes
	stringBytes []byte    // string channels only
	stringLens  []uint32  // string channels only, one length per value
	daqmx       *rawIndex // DAQmx carry-through only: the preserved index record
}

// Create opens path for writing and returns a [Writer]. If
// [WithCompanionIndex] is enabled, a "<basename>.tdms_index" file is also
// created and kept in lock-step.
func Create(path string, opts ...WriterOption) (*Writer, error) {
	cfg := writerConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	w := newWriter(f, f, cfg)

	if cfg.companionIdx {
		idxFile, err := os.Create(companionIndexPath(path))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
		w.indexW = idxFile
		w.indexC = idxFile
	}

	return w, nil
}

// NewWriter wraps an already-open [io.Writer] (and, if provided via
// [WithIndexWriter], a second writer for index-file-style meta-data).
// Neither writer is closed by [Writer.Close]; the caller owns their
// lifetime.
func NewWriter(dst io.Writer, opts ...WriterOption) (*Writer, error) {
	cfg := writerConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	w := newWriter(dst, nil, cfg)
	w.indexW = cfg.indexWriter
	return w, nil
}

func newWriter(dst io.Writer, closer io.Closer, cfg writerConfig) *Writer {
	return &Writer{
		data:           dst,
		dataC:          closer,
		bigEndian:      cfg.bigEndian,
		interleaved:    cfg.interleaved,
		flushThreshold: cfg.flushThreshold,
		state:          newEffectiveState(),
		channelType:    make(map[string]DataType),
		groupCreated:   make(map[string]bool),
		pendingProps:   make(map[string]*orderedProperties),
		pendingData:    make(map[string]*pendingChannelData),
	}
}

func (w *Writer) byteOrder() binary.ByteOrder {
	if w.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (w *Writer) pendingPropsFor(path string) *orderedProperties {
	p, ok := w.pendingProps[path]
	if !ok {
		p = newOrderedProperties()
		w.pendingProps[path] = p
	}
	return p
}

// stageProperty queues one property change, unless the value matches what
// the previous segment already recorded for this object, in which case the
// object doesn't need re-emitting on this property's account and any
// not-yet-flushed change to the same name is withdrawn.
func (w *Writer) stageProperty(path string, prop Property) {
	if last, ok := w.state.propsFor(path).get(prop.Name); ok &&
		last.TypeCode == prop.TypeCode && last.Value == prop.Value {
		if pp := w.pendingProps[path]; pp != nil {
			pp.delete(prop.Name)
			if pp.len() == 0 {
				delete(w.pendingProps, path)
			}
		}
		return
	}
	w.pendingPropsFor(path).set(prop)
}

// SetFileProperty queues a root-level property to be written on the next
// flush.
func (w *Writer) SetFileProperty(name string, value any) error {
	if w.closed {
		return ErrClosed
	}
	prop, err := NewProperty(name, value)
	if err != nil {
		return err
	}
	w.stageProperty("/", prop)
	return nil
}

// SetGroupProperty queues a group-level property, creating the group if it
// doesn't already exist.
func (w *Writer) SetGroupProperty(group, name string, value any) error {
	if w.closed {
		return ErrClosed
	}
	prop, err := NewProperty(name, value)
	if err != nil {
		return err
	}
	w.ensureGroup(group)
	w.stageProperty(FormatPath(group, ""), prop)
	return nil
}

// SetChannelProperty queues a channel-level property. The channel must
// already exist via [Writer.CreateChannel].
func (w *Writer) SetChannelProperty(group, channel, name string, value any) error {
	if w.closed {
		return ErrClosed
	}
	path := FormatPath(group, channel)
	if _, ok := w.channelType[path]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, path)
	}
	prop, err := NewProperty(name, value)
	if err != nil {
		return err
	}
	w.stageProperty(path, prop)
	return nil
}

func (w *Writer) ensureGroup(group string) {
	if !w.groupCreated[group] {
		w.groupCreated[group] = true
		w.state.objectOrder = append(w.state.objectOrder, FormatPath(group, ""))
	}
}

// CreateChannel registers a channel with a fixed data type, creating its
// group if necessary. Calling it again for an already-created channel with
// the same type is a no-op; a different type returns [ErrTypeMismatch].
func (w *Writer) CreateChannel(group, channel string, dt DataType) error {
	if w.closed {
		return ErrClosed
	}
	if dt == DataTypeDAQmxRawData {
		return ErrDAQmxUnsupportedOperation
	}

	w.ensureGroup(group)
	path := FormatPath(group, channel)

	if existing, ok := w.channelType[path]; ok {
		if existing != dt {
			return fmt.Errorf("%w: channel %q already created as %s", ErrTypeMismatch, path, existing)
		}
		return nil
	}

	w.channelType[path] = dt
	w.state.objectOrder = append(w.state.objectOrder, path)
	return nil
}

func (w *Writer) pendingDataFor(path string) *pendingChannelData {
	pd, ok := w.pendingData[path]
	if !ok {
		pd = &pendingChannelData{}
		w.pendingData[path] = pd
		w.pendingOrder = append(w.pendingOrder, path)
	}
	return pd
}

func (w *Writer) maybeAutoFlush() error {
	if w.flushThreshold > 0 && w.pendingBytes >= w.flushThreshold {
		return w.Flush()
	}
	return nil
}

func checkWritable(w *Writer, path string, dt DataType) error {
	if w.closed {
		return ErrClosed
	}
	got, ok := w.channelType[path]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, path)
	}
	if got != dt {
		return fmt.Errorf("%w: channel %q is %s, not %s", ErrTypeMismatch, path, got, dt)
	}
	return nil
}

func writeFixed[T any](w *Writer, group, channel string, values []T, dt DataType, encode func([]byte, binary.ByteOrder, T) []byte) error {
	path := FormatPath(group, channel)
	if err := checkWritable(w, path, dt); err != nil {
		return err
	}

	order := w.byteOrder()
	pd := w.pendingDataFor(path)
	before := len(pd.payload)
	for _, v := range values {
		pd.payload = encode(pd.payload, order, v)
	}
	pd.numValues += uint64(len(values))
	w.pendingBytes += len(pd.payload) - before
	return w.maybeAutoFlush()
}

// WriteInt8 queues values for an int8 channel.
func (w *Writer) WriteInt8(group, channel string, values []int8) error {
	return writeFixed(w, group, channel, values, DataTypeI8, func(b []byte, _ binary.ByteOrder, v int8) []byte {
		return append(b, byte(v))
	})
}

// WriteInt16 queues values for an int16 channel.
func (w *Writer) WriteInt16(group, channel string, values []int16) error {
	return writeFixed(w, group, channel, values, DataTypeI16, func(b []byte, o binary.ByteOrder, v int16) []byte {
		return appendInt16(b, o, v)
	})
}

// WriteInt32 queues values for an int32 channel.
func (w *Writer) WriteInt32(group, channel string, values []int32) error {
	return writeFixed(w, group, channel, values, DataTypeI32, func(b []byte, o binary.ByteOrder, v int32) []byte {
		return appendInt32(b, o, v)
	})
}

// WriteInt64 queues values for an int64 channel.
func (w *Writer) WriteInt64(group, channel string, values []int64) error {
	return writeFixed(w, group, channel, values, DataTypeI64, func(b []byte, o binary.ByteOrder, v int64) []byte {
		return appendInt64(b, o, v)
	})
}

// WriteUint8 queues values for a uint8 channel.
func (w *Writer) WriteUint8(group, channel string, values []uint8) error {
	return writeFixed(w, group, channel, values, DataTypeU8, func(b []byte, _ binary.ByteOrder, v uint8) []byte {
		return append(b, v)
	})
}

// WriteUint16 queues values for a uint16 channel.
func (w *Writer) WriteUint16(group, channel string, values []uint16) error {
	return writeFixed(w, group, channel, values, DataTypeU16, func(b []byte, o binary.ByteOrder, v uint16) []byte {
		return appendUint16(b, o, v)
	})
}

// WriteUint32 queues values for a uint32 channel.
func (w *Writer) WriteUint32(group, channel string, values []uint32) error {
	return writeFixed(w, group, channel, values, DataTypeU32, func(b []byte, o binary.ByteOrder, v uint32) []byte {
		return appendUint32(b, o, v)
	})
}

// WriteUint64 queues values for a uint64 channel.
func (w *Writer) WriteUint64(group, channel string, values []uint64) error {
	return writeFixed(w, group, channel, values, DataTypeU64, func(b []byte, o binary.ByteOrder, v uint64) []byte {
		return appendUint64(b, o, v)
	})
}

// WriteFloat32 queues values for a float32 channel.
func (w *Writer) WriteFloat32(group, channel string, values []float32) error {
	return writeFixed(w, group, channel, values, DataTypeF32, func(b []byte, o binary.ByteOrder, v float32) []byte {
		return appendFloat32(b, o, v)
	})
}

// WriteFloat64 queues values for a float64 channel.
func (w *Writer) WriteFloat64(group, channel string, values []float64) error {
	return writeFixed(w, group, channel, values, DataTypeF64, func(b []byte, o binary.ByteOrder, v float64) []byte {
		return appendFloat64(b, o, v)
	})
}

// WriteBool queues values for a boolean channel.
func (w *Writer) WriteBool(group, channel string, values []bool) error {
	return writeFixed(w, group, channel, values, DataTypeBool, func(b []byte, _ binary.ByteOrder, v bool) []byte {
		return appendBool(b, v)
	})
}

// WriteTimestamp queues values for a timestamp channel.
func (w *Writer) WriteTimestamp(group, channel string, values []Timestamp) error {
	return writeFixed(w, group, channel, values, DataTypeTimestamp, func(b []byte, o binary.ByteOrder, v Timestamp) []byte {
		return appendTimestamp(b, o, v)
	})
}

// WriteComplex64 queues values for a complex64 channel.
func (w *Writer) WriteComplex64(group, channel string, values []complex64) error {
	return writeFixed(w, group, channel, values, DataTypeComplexF32, func(b []byte, o binary.ByteOrder, v complex64) []byte {
		b = appendFloat32(b, o, real(v))
		return appendFloat32(b, o, imag(v))
	})
}

// WriteComplex128 queues values for a complex128 channel.
func (w *Writer) WriteComplex128(group, channel string, values []complex128) error {
	return writeFixed(w, group, channel, values, DataTypeComplexF64, func(b []byte, o binary.ByteOrder, v complex128) []byte {
		b = appendFloat64(b, o, real(v))
		return appendFloat64(b, o, imag(v))
	})
}

// WriteStrings queues values for a string channel. String channels cannot
// be written while the writer is configured for interleaved output:
// variable-width data is incompatible with interleaving.
func (w *Writer) WriteStrings(group, channel string, values []string) error {
	path := FormatPath(group, channel)
	if err := checkWritable(w, path, DataTypeString); err != nil {
		return err
	}
	if w.interleaved {
		return fmt.Errorf("%w: string channels cannot be written in interleaved mode", ErrInvalidFileFormat)
	}

	pd := w.pendingDataFor(path)
	for _, s := range values {
		raw := []byte(s)
		pd.stringBytes = append(pd.stringBytes, raw...)
		pd.stringLens = append(pd.stringLens, uint32(len(raw)))
		w.pendingBytes += 4 + len(raw)
	}
	pd.numValues += uint64(len(values))
	return w.maybeAutoFlush()
}

// writeDAQmxRaw stages a DAQmx channel's opaque raw bytes together with its
// preserved raw-index record. Only the defragmenter calls this: DAQmx data
// is carried through byte-for-byte, never reinterpreted or relaid, and the
// public write API rejects [DataTypeDAQmxRawData] outright.
func (w *Writer) writeDAQmxRaw(group, channel string, idx *rawIndex, raw []byte) error {
	if w.closed {
		return ErrClosed
	}
	if idx == nil || idx.scalerType == daqmxScalerNone {
		return ErrDAQmxUnsupportedOperation
	}
	if w.interleaved {
		return fmt.Errorf("%w: DAQmx raw data cannot share an interleaved segment", ErrDAQmxUnsupportedOperation)
	}

	path := FormatPath(group, channel)
	if existing, ok := w.channelType[path]; ok {
		if existing != DataTypeDAQmxRawData {
			return fmt.Errorf("%w: channel %q already created as %s", ErrTypeMismatch, path, existing)
		}
	} else {
		w.ensureGroup(group)
		w.channelType[path] = DataTypeDAQmxRawData
		w.state.objectOrder = append(w.state.objectOrder, path)
	}

	pd := w.pendingDataFor(path)
	pd.payload = append(pd.payload, raw...)
	w.pendingBytes += len(raw)

	// The scaler and width vectors are preserved verbatim; the chunk size is
	// the one field rewritten, to cover the whole consolidated payload.
	carried := *idx
	carried.dataType = DataTypeDAQmxRawData
	carried.scalers = append([]daqmxScaler(nil), idx.scalers...)
	carried.widths = append([]uint32(nil), idx.widths...)
	carried.totalSize = uint64(len(pd.payload))
	pd.daqmx = &carried
	return nil
}

// touchObject stages an object for emission in the next segment even when
// it carries no property changes and no raw data, so defragmentation can
// carry over groups and channels that exist in the source purely as
// objects.
func (w *Writer) touchObject(path string) {
	if _, ok := w.state.properties[path]; ok {
		return
	}
	w.pendingPropsFor(path)
}

// rawPart is one channel's contribution to the segment being flushed: its
// fully-encoded chunk bytes plus the raw-index record describing them.
type rawPart struct {
	path  string
	dt    DataType
	idx   *rawIndex
	chunk []byte
}

// Flush emits one segment containing every property and channel write
// queued since the previous flush. It is a no-op if nothing is pending.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	if len(w.pendingProps) == 0 && len(w.pendingData) == 0 {
		return nil
	}

	order := w.byteOrder()

	// Encode every staged chunk. The raw payload's channel order is the
	// order in which channels received their first write since the last
	// flush; the emitted object list below repeats that order so readers
	// attribute the payload correctly.
	rawParts := make([]rawPart, 0, len(w.pendingOrder))
	var interleaveCount uint64
	interleaveSet := false
	hasDAQmx := false

	for _, path := range w.pendingOrder {
		pd := w.pendingData[path]
		dt := w.channelType[path]

		if w.interleaved && dt != DataTypeString {
			if !interleaveSet {
				interleaveCount, interleaveSet = pd.numValues, true
			} else if pd.numValues != interleaveCount {
				return ErrInterleaveMismatch
			}
		}

		chunk, totalSize, err := encodeChunkPayload(order, dt, pd)
		if err != nil {
			return err
		}

		idx := pd.daqmx
		if idx != nil {
			hasDAQmx = true
		} else {
			idx = &rawIndex{dataType: dt, numValues: pd.numValues, totalSize: totalSize}
		}
		rawParts = append(rawParts, rawPart{path: path, dt: dt, idx: idx, chunk: chunk})
	}

	// Delta decision: a segment inherits the previous object list when it
	// writes the same channels in the same order. Anything else, including
	// the very first segment, forces a fresh object list naming every
	// object touched.
	newList := w.segmentsWritten == 0 || !slices.Equal(w.pendingOrder, w.state.rawOrder)

	type segmentObject struct {
		path  string
		kind  int
		idx   *rawIndex
		props []Property
	}
	var objs []segmentObject
	seen := make(map[string]bool)
	add := func(path string, kind int, idx *rawIndex) {
		if seen[path] {
			return
		}
		seen[path] = true
		var props []Property
		if pp := w.pendingProps[path]; pp != nil {
			props = pp.list()
		}
		objs = append(objs, segmentObject{path: path, kind: kind, idx: idx, props: props})
	}

	if newList {
		if w.pendingProps["/"] != nil {
			add("/", rawIndexKindNone, nil)
		}
		for _, rp := range rawParts {
			group, _, err := parsePathParts(rp.path)
			if err != nil {
				return err
			}
			add(FormatPath(group, ""), rawIndexKindNone, nil)

			kind := rawIndexKindFull
			if rp.idx.sameLayout(w.state.lastRawIndex[rp.path]) {
				kind = rawIndexKindSamePrevious
			}
			add(rp.path, kind, rp.idx)
		}
		for _, path := range w.state.objectOrder {
			if w.pendingProps[path] != nil {
				add(path, rawIndexKindNone, nil)
			}
		}
	} else {
		// Inherited list: emit only objects whose layout or properties
		// changed. A channel whose layout matches its previous index is
		// re-emitted (with the sentinel) only when it also carries a
		// property change.
		for _, rp := range rawParts {
			switch {
			case !rp.idx.sameLayout(w.state.lastRawIndex[rp.path]):
				add(rp.path, rawIndexKindFull, rp.idx)
			case w.pendingProps[rp.path] != nil:
				add(rp.path, rawIndexKindSamePrevious, rp.idx)
			}
		}
		if w.pendingProps["/"] != nil {
			add("/", rawIndexKindNone, nil)
		}
		for _, path := range w.state.objectOrder {
			if w.pendingProps[path] != nil {
				add(path, rawIndexKindNone, nil)
			}
		}
	}

	var metaBuf []byte
	if len(objs) > 0 {
		metaBuf = appendUint32(metaBuf, order, uint32(len(objs)))
		for _, o := range objs {
			var err error
			metaBuf, err = encodeMetaObject(metaBuf, order, &metaObject{path: o.path, rawKind: o.kind, index: o.idx}, o.props)
			if err != nil {
				return err
			}
		}
	}

	var rawBuf []byte
	if w.interleaved && len(rawParts) > 0 {
		n := rawParts[0].idx.numValues
		for i := uint64(0); i < n; i++ {
			for _, rp := range rawParts {
				s := rp.dt.Size()
				rawBuf = append(rawBuf, rp.chunk[int(i)*s:int(i+1)*s]...)
			}
		}
	} else {
		for _, rp := range rawParts {
			rawBuf = append(rawBuf, rp.chunk...)
		}
	}

	li := leadIn{
		containsMetadata:     len(metaBuf) > 0,
		containsRawData:      len(rawParts) > 0,
		containsDAQmxRawData: hasDAQmx,
		isInterleaved:        w.interleaved && len(rawParts) > 0,
		bigEndian:            w.bigEndian,
		newObjectList:        newList,
		version:              Version2_0Variant,
		rawDataOffset:        uint64(len(metaBuf)),
		nextSegmentOffset:    uint64(len(metaBuf) + len(rawBuf)),
	}

	if _, err := w.data.Write(encodeLeadIn(li, false)); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if len(metaBuf) > 0 {
		if _, err := w.data.Write(metaBuf); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}
	if len(rawBuf) > 0 {
		if _, err := w.data.Write(rawBuf); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}

	if w.indexW != nil {
		if _, err := w.indexW.Write(encodeLeadIn(li, true)); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		if len(metaBuf) > 0 {
			if _, err := w.indexW.Write(metaBuf); err != nil {
				return fmt.Errorf("%w: %w", ErrWriteFailed, err)
			}
		}
	}

	// The segment is on disk; fold the pending changes into the
	// previous-segment state the next flush will diff against.
	for path, pp := range w.pendingProps {
		merged := w.state.propsFor(path)
		for _, p := range pp.list() {
			merged.set(p)
		}
	}
	for _, rp := range rawParts {
		w.state.lastRawIndex[rp.path] = rp.idx
	}
	w.state.rawOrder = append([]string(nil), w.pendingOrder...)
	w.segmentsWritten++

	w.pendingProps = make(map[string]*orderedProperties)
	w.pendingData = make(map[string]*pendingChannelData)
	w.pendingOrder = nil
	w.pendingBytes = 0

	return nil
}

// encodeChunkPayload builds one channel's fully-encoded chunk bytes
// (including the offset table for string channels) and returns the
// resulting total byte size.
func encodeChunkPayload(order binary.ByteOrder, dt DataType, pd *pendingChannelData) ([]byte, uint64, error) {
	if dt != DataTypeString {
		return pd.payload, uint64(len(pd.payload)), nil
	}

	// The offset table holds each string's starting position within the
	// concatenated block: 0 for the first, then the cumulative byte length
	// of the strings before it.
	table := make([]byte, 0, 4*len(pd.stringLens))
	var cumulative uint32
	for _, n := range pd.stringLens {
		table = appendUint32(table, order, cumulative)
		cumulative += n
	}

	chunk := make([]byte, 0, len(table)+len(pd.stringBytes))
	chunk = append(chunk, table...)
	chunk = append(chunk, pd.stringBytes...)
	return chunk, uint64(len(chunk)), nil
}

// Close flushes any pending writes and releases file handles opened by
// [Create].
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if err := w.Flush(); err != nil {
		return err
	}
	w.closed = true

	var errs []error
	if w.dataC != nil {
		if err := w.dataC.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.indexC != nil {
		if err := w.indexC.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrIO, errs)
	}
	return nil
}
