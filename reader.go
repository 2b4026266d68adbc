package tdms

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// readerConfig holds the options assembled by [ReadOption] functions.
type readerConfig struct {
	useIndexFile        bool
	validateFingerprint bool
}

// ReadOption configures a [Reader] constructed by [Open] or [NewReader].
type ReadOption func(*readerConfig)

// WithIndexFile controls whether [Open] looks for and uses a companion
// ".tdms_index" file to scan meta-data without touching the (potentially
// much larger) data file. Enabled by default.
func WithIndexFile(enabled bool) ReadOption {
	return func(c *readerConfig) { c.useIndexFile = enabled }
}

// WithFingerprintValidation enables an extra structural check: when a
// companion index file is used, the reader also re-reads every segment's
// 28-byte lead-in directly from the data file and compares an xxhash64
// fingerprint of the ToC/version/offset fields against the same fingerprint
// computed from the index file, failing with [ErrInvalidFileFormat] on a
// mismatch. This catches a stale index left behind after the data file was
// modified by another tool. Disabled by default since it requires seeking
// to every segment in the data file, which is exactly the cost an index
// file exists to avoid for the common case.
func WithFingerprintValidation(enabled bool) ReadOption {
	return func(c *readerConfig) { c.validateFingerprint = enabled }
}

func defaultReaderConfig() readerConfig {
	return readerConfig{useIndexFile: true, validateFingerprint: false}
}

// Reader provides random-access reads over a TDMS file. It scans all
// segment meta-data eagerly on construction, building an in-memory object
// model ([Reader.File]) and a per-channel chunk index used to satisfy
// subsequent value reads without rescanning.
type Reader struct {
	data     io.ReaderAt
	closer   io.Closer
	fileSize int64

	tree         *objectTree
	segmentCount int
}

// Open opens the TDMS file at path for random-access reading. If a
// companion "<basename>.tdms_index" file exists alongside it and
// [WithIndexFile] hasn't disabled the behaviour, meta-data is scanned from
// the (much smaller) index file instead of the data file.
func Open(path string, opts ...ReadOption) (*Reader, error) {
	cfg := defaultReaderConfig()
	for _, o := range opts {
		o(&cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	r := &Reader{data: f, closer: f, fileSize: info.Size()}

	var metaSource io.ReaderAt
	var metaSize int64
	var usingIndex bool

	if cfg.useIndexFile {
		indexPath := companionIndexPath(path)
		if idxFile, err := os.Open(indexPath); err == nil {
			idxInfo, statErr := idxFile.Stat()
			if statErr == nil {
				metaSource, metaSize, usingIndex = idxFile, idxInfo.Size(), true
				defer idxFile.Close()
			} else {
				idxFile.Close()
			}
		}
	}

	if !usingIndex {
		metaSource, metaSize = f, r.fileSize
	}

	leadIns, err := r.scan(metaSource, metaSize, usingIndex)
	if err != nil {
		f.Close()
		return nil, err
	}

	if usingIndex && cfg.validateFingerprint {
		if err := r.validateIndexFingerprint(leadIns); err != nil {
			f.Close()
			return nil, err
		}
	}

	return r, nil
}

// NewReader scans and indexes a TDMS file already available as a
// [io.ReaderAt], such as an in-memory buffer. Companion index files don't
// apply to this entry point.
func NewReader(data io.ReaderAt, size int64) (*Reader, error) {
	r := &Reader{data: data, fileSize: size}
	if _, err := r.scan(data, size, false); err != nil {
		return nil, err
	}
	return r, nil
}

func companionIndexPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".tdms_index"
}

// Close releases any file handle opened by [Open]. Calling Close on a
// [Reader] built with [NewReader] is a no-op.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// File returns a snapshot of the object model accumulated from every
// segment scanned so far.
func (r *Reader) File() *File {
	return r.tree.snapshot()
}

// SegmentCount returns the number of segments found in the file.
func (r *Reader) SegmentCount() int {
	return r.segmentCount
}

// Channel is a convenience lookup combining [ParsePath] with a walk of
// [Reader.File]'s group/channel maps.
func (r *Reader) Channel(path string) (*Channel, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if p.Kind != PathChannel {
		return nil, fmt.Errorf("%w: %q is not a channel path", ErrMalformedPath, path)
	}

	gn, ok := r.tree.groups[p.Group]
	if !ok {
		return nil, fmt.Errorf("group %q not found", p.Group)
	}
	cn, ok := gn.channels[p.Channel]
	if !ok {
		return nil, fmt.Errorf("channel %q not found in group %q", p.Channel, p.Group)
	}

	return &Channel{
		Name:           cn.name,
		GroupName:      cn.groupName,
		DataType:       cn.dataType,
		Properties:     cn.properties.toMap(),
		path:           cn.path,
		totalNumValues: cn.totalNumValues,
		chunks:         append([]chunkRef(nil), cn.chunks...),
		daqmxIndex:     cn.daqmxIndex,
	}, nil
}

// scan walks every segment reachable via nextSegmentOffset chaining,
// starting at offset 0, building r.tree and returning the decoded lead-ins
// in order (used for fingerprint validation).
//
// A final segment whose lead-in carries the incomplete-write sentinel, or
// whose declared payload extends past end-of-file, is truncated to the
// bytes actually present: its meta-data is applied if it fits and as many
// whole raw values as remain are indexed. No error is surfaced for either.
func (r *Reader) scan(src io.ReaderAt, size int64, isIndexFile bool) ([]leadIn, error) {
	r.tree = newObjectTree()

	var leadIns []leadIn
	var metaOffset int64 // position within src (index file, or the data file when no index is used)
	var dataOffset int64 // position within the actual data file (r.data); equals metaOffset when !isIndexFile

	// Raw-contributor order and per-channel layout carried from one
	// segment to the next.
	rawActive := []string{}
	lastRawIndex := map[string]*rawIndex{}

	for metaOffset < size {
		if size-metaOffset < leadInSize {
			// Trailing bytes too short to form a lead-in: a writer crashed
			// mid-segment. Stop here; everything decoded so far stays valid.
			break
		}

		raw := make([]byte, leadInSize)
		if _, err := src.ReadAt(raw, metaOffset); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
		}

		li, err := decodeLeadIn(raw, isIndexFile)
		if err != nil {
			return nil, err
		}
		leadIns = append(leadIns, li)

		if li.rawDataOffset == segmentIncompleteSentinel {
			// Writer crashed before sizing even the meta-data region.
			break
		}
		truncated := li.nextSegmentOffset == segmentIncompleteSentinel

		metaRegionStart := metaOffset + leadInSize
		metaSize := int64(li.rawDataOffset)
		if metaRegionStart+metaSize > size {
			// Lead-in written but the meta-data never fully made it to disk.
			break
		}

		dataRegionStart := dataOffset + leadInSize
		rawSize := int64(li.nextSegmentOffset) - metaSize
		avail := r.fileSize - (dataRegionStart + metaSize)
		if truncated || rawSize > avail {
			rawSize = avail
			truncated = true
		}
		if rawSize < 0 {
			rawSize = 0
		}

		var objs []*metaObject
		if li.containsMetadata && metaSize > 0 {
			metaBuf := make([]byte, metaSize)
			if _, err := src.ReadAt(metaBuf, metaRegionStart); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
			}
			objs, err = decodeMetaList(metaBuf, li.byteOrder(), li.isInterleaved)
			if err != nil {
				return nil, err
			}
		}

		rawActive, err = r.applySegmentObjects(li, objs, rawActive, lastRawIndex)
		if err != nil {
			return nil, err
		}

		if li.containsRawData && rawSize > 0 {
			if err := r.indexRawData(li, dataRegionStart+metaSize, rawSize, rawActive, lastRawIndex); err != nil {
				return nil, err
			}
		}

		r.segmentCount++

		if truncated {
			break
		}

		metaOffset = metaRegionStart + metaSize
		if !isIndexFile {
			metaOffset += rawSize
		}
		dataOffset = dataRegionStart + metaSize + rawSize
	}

	return leadIns, nil
}

func appendIfMissing(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// applySegmentObjects merges one segment's decoded object list into the
// reader's cumulative object tree and returns the updated raw-contributor
// order. With a fresh object list the contributors are exactly the listed
// channels carrying a raw index; with an inherited list the previous
// contributors persist, extended by newly indexed channels and shrunk by
// channels explicitly marked as carrying no raw data this segment.
func (r *Reader) applySegmentObjects(li leadIn, objs []*metaObject, prevRawActive []string, lastRawIndex map[string]*rawIndex) ([]string, error) {
	if len(objs) == 0 {
		return prevRawActive, nil
	}

	rawActive := prevRawActive
	if li.newObjectList {
		rawActive = make([]string, 0, len(objs))
	}

	for _, o := range objs {
		p, err := ParsePath(o.path)
		if err != nil {
			return nil, err
		}

		switch p.Kind {
		case PathRoot:
			for _, prop := range o.properties.list() {
				r.tree.rootProperties.set(prop)
			}
			continue
		case PathGroup:
			g := r.tree.group(p.Group)
			for _, prop := range o.properties.list() {
				g.properties.set(prop)
			}
			continue
		}

		switch o.rawKind {
		case rawIndexKindFull:
			lastRawIndex[o.path] = o.index
			rawActive = appendIfMissing(rawActive, o.path)
		case rawIndexKindSamePrevious:
			if lastRawIndex[o.path] == nil {
				return nil, fmt.Errorf(
					"%w: object %q marked as matching previous raw index with no prior index on record",
					ErrInvalidFileFormat, o.path,
				)
			}
			rawActive = appendIfMissing(rawActive, o.path)
		case rawIndexKindNone:
			if !li.newObjectList {
				rawActive = removeString(rawActive, o.path)
			}
		}

		dt := DataTypeVoid
		if idx := lastRawIndex[o.path]; idx != nil {
			dt = idx.dataType
		}
		g := r.tree.group(p.Group)
		c := g.channel(p.Channel, dt, o.path)
		if idx := lastRawIndex[o.path]; idx != nil {
			c.dataType = idx.dataType
			if idx.scalerType != daqmxScalerNone {
				c.daqmxIndex = idx
			}
		}
		for _, prop := range o.properties.list() {
			c.properties.set(prop)
		}
	}

	return rawActive, nil
}

// indexRawData computes the chunk layout for every contributing channel in
// one segment and appends the resulting [chunkRef]s. rawDataStart is the
// absolute offset of the segment's raw payload in the actual data file;
// rawSize is the payload byte count actually present on disk, which for a
// truncated final segment may cover only part of a chunk — whatever whole
// values fit are still indexed.
func (r *Reader) indexRawData(li leadIn, rawDataStart, rawSize int64, rawActive []string, lastRawIndex map[string]*rawIndex) error {
	type contributor struct {
		path string
		idx  *rawIndex
	}

	contributors := make([]contributor, 0, len(rawActive))
	var chunkByteSize int64
	var rowStride int64
	for _, path := range rawActive {
		idx := lastRawIndex[path]
		if idx == nil {
			continue
		}
		contributors = append(contributors, contributor{path: path, idx: idx})
		chunkByteSize += int64(idx.totalSize)
		rowStride += int64(idx.dataType.Size())
	}

	if chunkByteSize == 0 {
		return nil
	}

	numChunks := uint64(rawSize / chunkByteSize)
	leftover := rawSize % chunkByteSize
	partialStart := rawDataStart + int64(numChunks)*chunkByteSize

	var cumulative int64
	for _, c := range contributors {
		idx := c.idx
		p, err := ParsePath(c.path)
		if err != nil || p.Kind != PathChannel {
			continue
		}
		gn := r.tree.group(p.Group)
		cn := gn.channel(p.Channel, idx.dataType, c.path)

		elemSize := int64(idx.dataType.Size())

		if li.isInterleaved {
			if numChunks > 0 {
				ref := chunkRef{
					dataType:       idx.dataType,
					bigEndian:      li.bigEndian,
					dataOffset:     rawDataStart + cumulative,
					valuesPerChunk: 1,
					numChunks:      idx.numValues * numChunks,
					chunkStride:    rowStride,
					chunkByteSize:  elemSize,
				}
				cn.chunks = append(cn.chunks, ref)
				cn.totalNumValues += ref.numChunks
			}
			if leftover >= cumulative+elemSize && elemSize > 0 {
				extra := uint64((leftover-cumulative-elemSize)/rowStride) + 1
				ref := chunkRef{
					dataType:       idx.dataType,
					bigEndian:      li.bigEndian,
					dataOffset:     partialStart + cumulative,
					valuesPerChunk: 1,
					numChunks:      extra,
					chunkStride:    rowStride,
					chunkByteSize:  elemSize,
				}
				cn.chunks = append(cn.chunks, ref)
				cn.totalNumValues += extra
			}
			cumulative += elemSize
			continue
		}

		if numChunks > 0 {
			ref := chunkRef{
				dataType:       idx.dataType,
				bigEndian:      li.bigEndian,
				dataOffset:     rawDataStart + cumulative,
				valuesPerChunk: idx.numValues,
				numChunks:      numChunks,
				chunkStride:    chunkByteSize,
				chunkByteSize:  int64(idx.totalSize),
			}
			cn.chunks = append(cn.chunks, ref)
			cn.totalNumValues += ref.valuesPerChunk * ref.numChunks
		}
		if leftover > cumulative && elemSize > 0 {
			bytesAvail := leftover - cumulative
			if bytesAvail > int64(idx.totalSize) {
				bytesAvail = int64(idx.totalSize)
			}
			if vals := uint64(bytesAvail / elemSize); vals > 0 {
				ref := chunkRef{
					dataType:       idx.dataType,
					bigEndian:      li.bigEndian,
					dataOffset:     partialStart + cumulative,
					valuesPerChunk: vals,
					numChunks:      1,
					chunkStride:    chunkByteSize,
					chunkByteSize:  int64(vals) * elemSize,
				}
				cn.chunks = append(cn.chunks, ref)
				cn.totalNumValues += vals
			}
		}
		cumulative += int64(idx.totalSize)
	}

	return nil
}

// decodeMetaList decodes a segment's full object list from an
// already-buffered meta-data region.
func decodeMetaList(buf []byte, order binary.ByteOrder, isInterleaved bool) ([]*metaObject, error) {
	r := newByteReader(buf)
	count, err := r.readUint32(order)
	if err != nil {
		return nil, err
	}

	objs := make([]*metaObject, 0, count)
	for i := uint32(0); i < count; i++ {
		o, err := decodeMetaObject(r, order, isInterleaved)
		if err != nil {
			return nil, err
		}
		objs = append(objs, o)
	}
	return objs, nil
}

func (r *Reader) validateIndexFingerprint(indexLeadIns []leadIn) error {
	dataLeadIns, err := r.rescanDataFileLeadIns()
	if err != nil {
		return err
	}
	if computeStructuralFingerprint(indexLeadIns) != computeStructuralFingerprint(dataLeadIns) {
		return fmt.Errorf("%w: index file fingerprint does not match data file", ErrInvalidFileFormat)
	}
	return nil
}

func (r *Reader) rescanDataFileLeadIns() ([]leadIn, error) {
	var leadIns []leadIn
	var offset int64
	for offset < r.fileSize {
		if r.fileSize-offset < leadInSize {
			break
		}
		raw := make([]byte, leadInSize)
		if _, err := r.data.ReadAt(raw, offset); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
		}
		li, err := decodeLeadIn(raw, false)
		if err != nil {
			return nil, err
		}
		leadIns = append(leadIns, li)
		if li.nextSegmentOffset == segmentIncompleteSentinel {
			break
		}
		next := offset + leadInSize + int64(li.nextSegmentOffset)
		if next <= offset {
			break
		}
		offset = next
	}
	return leadIns, nil
}

// computeStructuralFingerprint hashes the parts of each lead-in that must
// agree between a data file and its companion index file: the ToC bits,
// version, and both offsets. The 4-byte tag is deliberately excluded since
// it legitimately differs ("TDSm" vs "TDSh").
func computeStructuralFingerprint(leadIns []leadIn) uint64 {
	h := xxhash.New()
	for _, li := range leadIns {
		var buf [24]byte
		binary.LittleEndian.PutUint32(buf[0:4], tocFromLeadIn(li))
		binary.LittleEndian.PutUint32(buf[4:8], li.version)
		binary.LittleEndian.PutUint64(buf[8:16], li.nextSegmentOffset)
		binary.LittleEndian.PutUint64(buf[16:24], li.rawDataOffset)
		h.Write(buf[:])
	}
	return h.Sum64()
}
