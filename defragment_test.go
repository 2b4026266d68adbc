package tdms

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildFragmentedFile(t *testing.T, path string) {
	t.Helper()

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := w.SetFileProperty("title", "fragmented"); err != nil {
		t.Fatalf("SetFileProperty() error = %v", err)
	}
	if err := w.CreateChannel("G", "C1", DataTypeF64); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.CreateChannel("G", "C2", DataTypeString); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}

	if err := w.WriteFloat64("G", "C1", []float64{1, 2, 3}); err != nil {
		t.Fatalf("WriteFloat64() error = %v", err)
	}
	if err := w.WriteStrings("G", "C2", []string{"a", "bb"}); err != nil {
		t.Fatalf("WriteStrings() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if err := w.WriteFloat64("G", "C1", []float64{4, 5}); err != nil {
		t.Fatalf("WriteFloat64() error = %v", err)
	}
	if err := w.WriteStrings("G", "C2", []string{"ccc"}); err != nil {
		t.Fatalf("WriteStrings() error = %v", err)
	}
	if err := w.SetChannelProperty("G", "C1", "gain", float64(2.0)); err != nil {
		t.Fatalf("SetChannelProperty() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestDefragmentPreservesData(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "fragmented.tdms")
	dstPath := filepath.Join(dir, "defragmented.tdms")

	buildFragmentedFile(t, srcPath)

	if err := Defragment(srcPath, dstPath); err != nil {
		t.Fatalf("Defragment() error = %v", err)
	}

	r, err := Open(dstPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if r.SegmentCount() != 1 {
		t.Errorf("SegmentCount() = %d, want 1 after defragmenting", r.SegmentCount())
	}

	dstBytes, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("read defragmented file: %v", err)
	}
	li, err := decodeLeadIn(dstBytes[:leadInSize], false)
	if err != nil {
		t.Fatalf("decodeLeadIn() error = %v", err)
	}
	if !li.newObjectList || !li.containsMetadata || !li.containsRawData {
		t.Errorf("defragmented lead-in = %+v, want a new object list with meta-data and raw data", li)
	}

	f := r.File()
	if f.Properties["title"].Value != "fragmented" {
		t.Errorf("file property title = %v, want %q", f.Properties["title"].Value, "fragmented")
	}

	c1, err := r.Channel("/'G'/'C1'")
	if err != nil {
		t.Fatalf("Channel(C1) error = %v", err)
	}
	got1, err := r.ReadFloat64(c1)
	if err != nil {
		t.Fatalf("ReadFloat64() error = %v", err)
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 4, 5}, got1); diff != "" {
		t.Errorf("defragmented C1 mismatch (-want +got):\n%s", diff)
	}
	if c1.Properties["gain"].Value != float64(2.0) {
		t.Errorf("defragmented C1 gain = %v, want 2.0", c1.Properties["gain"].Value)
	}

	c2, err := r.Channel("/'G'/'C2'")
	if err != nil {
		t.Fatalf("Channel(C2) error = %v", err)
	}
	got2, err := r.ReadStrings(c2)
	if err != nil {
		t.Fatalf("ReadStrings() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a", "bb", "ccc"}, got2); diff != "" {
		t.Errorf("defragmented C2 mismatch (-want +got):\n%s", diff)
	}
}

// Re-defragmenting an already-defragmented file must reproduce it byte for
// byte: the object order, property order, and raw layout have all been
// normalised by the first pass.
func TestDefragmentIsByteStable(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "fragmented.tdms")
	firstPath := filepath.Join(dir, "first.tdms")
	secondPath := filepath.Join(dir, "second.tdms")

	buildFragmentedFile(t, srcPath)

	if err := Defragment(srcPath, firstPath); err != nil {
		t.Fatalf("Defragment(src) error = %v", err)
	}
	if err := Defragment(firstPath, secondPath); err != nil {
		t.Fatalf("Defragment(first) error = %v", err)
	}

	first, err := os.ReadFile(firstPath)
	if err != nil {
		t.Fatalf("read first pass: %v", err)
	}
	second, err := os.ReadFile(secondPath)
	if err != nil {
		t.Fatalf("read second pass: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("second defragmentation pass produced different bytes than the first")
	}
}

// buildDAQmxFile hand-assembles a single-segment file whose only channel
// carries a DAQmx raw index, since the public write API refuses to create
// one.
func buildDAQmxFile(t *testing.T, path string) (idx *rawIndex, raw []byte) {
	t.Helper()
	order := binary.LittleEndian

	idx = &rawIndex{
		scalerType: daqmxScalerFormatChanging,
		dataType:   DataTypeDAQmxRawData,
		daqmxDim:   1,
		totalSize:  8,
		scalers: []daqmxScaler{
			{dataType: DataTypeI16, rawBufferIndex: 0, rawByteOffsetWithinStride: 0, sampleFormatBitmap: 0, scaleID: 3},
		},
		widths: []uint32{8},
	}
	raw = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16} // two chunks

	var meta []byte
	meta = appendUint32(meta, order, 1)
	meta = appendString(meta, order, "/'G'/'DAQ'")
	meta = encodeRawIndexDAQmx(meta, order, idx)
	meta = appendUint32(meta, order, 0)

	li := leadIn{
		containsMetadata: true, containsRawData: true,
		containsDAQmxRawData: true, newObjectList: true,
		version:           Version2_0Variant,
		rawDataOffset:     uint64(len(meta)),
		nextSegmentOffset: uint64(len(meta) + len(raw)),
	}

	file := encodeLeadIn(li, false)
	file = append(file, meta...)
	file = append(file, raw...)

	if err := os.WriteFile(path, file, 0o644); err != nil {
		t.Fatalf("write DAQmx fixture: %v", err)
	}
	return idx, raw
}

func TestDefragmentCarriesDAQmxChannelThrough(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "daqmx.tdms")
	dstPath := filepath.Join(dir, "defragmented.tdms")

	srcIdx, srcRaw := buildDAQmxFile(t, srcPath)

	if err := Defragment(srcPath, dstPath); err != nil {
		t.Fatalf("Defragment() error = %v", err)
	}

	r, err := Open(dstPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if r.SegmentCount() != 1 {
		t.Errorf("SegmentCount() = %d, want 1", r.SegmentCount())
	}

	ch, err := r.Channel("/'G'/'DAQ'")
	if err != nil {
		t.Fatalf("Channel(DAQ) error = %v", err)
	}
	if ch.DataType != DataTypeDAQmxRawData {
		t.Errorf("DataType = %v, want DataTypeDAQmxRawData", ch.DataType)
	}

	got, err := r.readChannelRawBytes(ch)
	if err != nil {
		t.Fatalf("readChannelRawBytes() error = %v", err)
	}
	if diff := cmp.Diff(srcRaw, got); diff != "" {
		t.Errorf("DAQmx raw bytes mismatch after defragmentation (-want +got):\n%s", diff)
	}

	// Scalers and widths survive verbatim; only the chunk size is rewritten
	// to span the consolidated payload.
	opts := cmp.Options{cmp.AllowUnexported(rawIndex{}, daqmxScaler{})}
	if diff := cmp.Diff(srcIdx.scalers, ch.daqmxIndex.scalers, opts...); diff != "" {
		t.Errorf("DAQmx scaler vector mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(srcIdx.widths, ch.daqmxIndex.widths); diff != "" {
		t.Errorf("DAQmx width vector mismatch (-want +got):\n%s", diff)
	}
	if ch.daqmxIndex.totalSize != uint64(len(srcRaw)) {
		t.Errorf("consolidated DAQmx chunk size = %d, want %d", ch.daqmxIndex.totalSize, len(srcRaw))
	}

	dstBytes, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("read defragmented file: %v", err)
	}
	li, err := decodeLeadIn(dstBytes[:leadInSize], false)
	if err != nil {
		t.Fatalf("decodeLeadIn() error = %v", err)
	}
	if !li.containsDAQmxRawData {
		t.Error("defragmented lead-in lost the DAQmx raw-data flag")
	}
}

func TestWriterRejectsDAQmxLayoutChange(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)

	if err := w.writeDAQmxRaw("G", "DAQ", &rawIndex{}, nil); err != ErrDAQmxUnsupportedOperation {
		t.Errorf("writeDAQmxRaw() with a non-DAQmx index error = %v, want %v", err, ErrDAQmxUnsupportedOperation)
	}
}
