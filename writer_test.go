package tdms

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustWriter(t *testing.T, buf *bytes.Buffer, opts ...WriterOption) *Writer {
	t.Helper()
	w, err := NewWriter(buf, opts...)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	return w
}

func mustReader(t *testing.T, buf *bytes.Buffer) *Reader {
	t.Helper()
	r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	return r
}

func TestWriteReadRoundTripBasic(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)

	if err := w.SetFileProperty("title", "test file"); err != nil {
		t.Fatalf("SetFileProperty() error = %v", err)
	}
	if err := w.CreateChannel("Group1", "Channel1", DataTypeF64); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.SetChannelProperty("Group1", "Channel1", "unit", "volts"); err != nil {
		t.Fatalf("SetChannelProperty() error = %v", err)
	}
	want := []float64{1.1, 2.2, 3.3, 4.4}
	if err := w.WriteFloat64("Group1", "Channel1", want); err != nil {
		t.Fatalf("WriteFloat64() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r := mustReader(t, &buf)
	defer r.Close()

	if r.SegmentCount() != 1 {
		t.Errorf("SegmentCount() = %d, want 1", r.SegmentCount())
	}

	f := r.File()
	if f.Properties["title"].Value != "test file" {
		t.Errorf("file property title = %v, want %q", f.Properties["title"].Value, "test file")
	}

	ch, err := r.Channel("/'Group1'/'Channel1'")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	if ch.Properties["unit"].Value != "volts" {
		t.Errorf("channel property unit = %v, want %q", ch.Properties["unit"].Value, "volts")
	}

	got, err := r.ReadFloat64(ch)
	if err != nil {
		t.Fatalf("ReadFloat64() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadFloat64() round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadRoundTripMultipleSegments(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)

	if err := w.CreateChannel("G", "C", DataTypeI32); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.WriteInt32("G", "C", []int32{1, 2, 3}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := w.WriteInt32("G", "C", []int32{4, 5}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r := mustReader(t, &buf)
	defer r.Close()

	if r.SegmentCount() != 2 {
		t.Errorf("SegmentCount() = %d, want 2", r.SegmentCount())
	}

	ch, err := r.Channel("/'G'/'C'")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	got, err := r.ReadInt32(ch)
	if err != nil {
		t.Fatalf("ReadInt32() error = %v", err)
	}
	want := []int32{1, 2, 3, 4, 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadInt32() round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadRoundTripPropertyOverride(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)

	if err := w.CreateChannel("G", "C", DataTypeI32); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.SetChannelProperty("G", "C", "gain", float64(1.0)); err != nil {
		t.Fatalf("SetChannelProperty() error = %v", err)
	}
	if err := w.WriteInt32("G", "C", []int32{1}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if err := w.SetChannelProperty("G", "C", "gain", float64(2.0)); err != nil {
		t.Fatalf("SetChannelProperty() error = %v", err)
	}
	if err := w.WriteInt32("G", "C", []int32{2}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r := mustReader(t, &buf)
	defer r.Close()

	ch, err := r.Channel("/'G'/'C'")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	if got := ch.Properties["gain"].Value; got != float64(2.0) {
		t.Errorf("gain = %v, want 2.0", got)
	}
}

func TestWriteReadRoundTripStrings(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)

	if err := w.CreateChannel("G", "C", DataTypeString); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	want := []string{"hello", "", "a longer string with spaces", "日本語"}
	if err := w.WriteStrings("G", "C", want); err != nil {
		t.Fatalf("WriteStrings() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r := mustReader(t, &buf)
	defer r.Close()

	ch, err := r.Channel("/'G'/'C'")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	got, err := r.ReadStrings(ch)
	if err != nil {
		t.Fatalf("ReadStrings() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadStrings() round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadRoundTripBigEndian(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf, WithWriterBigEndian(true))

	if err := w.CreateChannel("G", "C", DataTypeF64); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	want := []float64{-1.5, 0, 42.125}
	if err := w.WriteFloat64("G", "C", want); err != nil {
		t.Fatalf("WriteFloat64() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r := mustReader(t, &buf)
	defer r.Close()

	ch, err := r.Channel("/'G'/'C'")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	got, err := r.ReadFloat64(ch)
	if err != nil {
		t.Fatalf("ReadFloat64() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadFloat64() round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadRoundTripInterleaved(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf, WithWriterInterleaved(true))

	if err := w.CreateChannel("G", "C1", DataTypeI32); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.CreateChannel("G", "C2", DataTypeI32); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	want1 := []int32{1, 2, 3}
	want2 := []int32{10, 20, 30}
	if err := w.WriteInt32("G", "C1", want1); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.WriteInt32("G", "C2", want2); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r := mustReader(t, &buf)
	defer r.Close()

	c1, err := r.Channel("/'G'/'C1'")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	c2, err := r.Channel("/'G'/'C2'")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}

	got1, err := r.ReadInt32(c1)
	if err != nil {
		t.Fatalf("ReadInt32(C1) error = %v", err)
	}
	got2, err := r.ReadInt32(c2)
	if err != nil {
		t.Fatalf("ReadInt32(C2) error = %v", err)
	}

	if diff := cmp.Diff(want1, got1); diff != "" {
		t.Errorf("ReadInt32(C1) round trip mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want2, got2); diff != "" {
		t.Errorf("ReadInt32(C2) round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteInterleavedMismatchedLengths(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf, WithWriterInterleaved(true))

	if err := w.CreateChannel("G", "C1", DataTypeI32); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.CreateChannel("G", "C2", DataTypeI32); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.WriteInt32("G", "C1", []int32{1, 2, 3}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.WriteInt32("G", "C2", []int32{1, 2}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}

	if err := w.Flush(); err != ErrInterleaveMismatch {
		t.Errorf("Flush() error = %v, want %v", err, ErrInterleaveMismatch)
	}
}

func TestWriteStringsRejectedInInterleavedMode(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf, WithWriterInterleaved(true))

	if err := w.CreateChannel("G", "C", DataTypeString); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.WriteStrings("G", "C", []string{"a"}); err == nil {
		t.Error("WriteStrings() in interleaved mode succeeded, want error")
	}
}

func TestCreateChannelRejectsDAQmx(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)

	if err := w.CreateChannel("G", "C", DataTypeDAQmxRawData); err != ErrDAQmxUnsupportedOperation {
		t.Errorf("CreateChannel() error = %v, want %v", err, ErrDAQmxUnsupportedOperation)
	}
}

func TestCreateChannelRejectsTypeChange(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)

	if err := w.CreateChannel("G", "C", DataTypeI32); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.CreateChannel("G", "C", DataTypeF64); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("CreateChannel() error = %v, want %v", err, ErrTypeMismatch)
	}
}

func TestSetChannelPropertyUnknownChannel(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)

	if err := w.SetChannelProperty("G", "C", "x", int32(1)); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("SetChannelProperty() error = %v, want %v", err, ErrUnknownChannel)
	}
}

func TestWriterFlushNoopWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() on empty writer error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Flush() on empty writer wrote %d bytes, want 0", buf.Len())
	}
}

func TestWriterClosedOperationsFail(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := w.CreateChannel("G", "C", DataTypeI32); err != ErrClosed {
		t.Errorf("CreateChannel() after Close error = %v, want %v", err, ErrClosed)
	}
	if err := w.SetFileProperty("x", int32(1)); err != ErrClosed {
		t.Errorf("SetFileProperty() after Close error = %v, want %v", err, ErrClosed)
	}
}

func TestWriterFlushThresholdCutsSegments(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf, WithFlushThreshold(16))

	if err := w.CreateChannel("G", "C", DataTypeI32); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	// 16 bytes staged: reaches the threshold, flushing inside the write.
	if err := w.WriteInt32("G", "C", []int32{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	// Another 16: a second automatic segment.
	if err := w.WriteInt32("G", "C", []int32{5, 6, 7, 8}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r := mustReader(t, &buf)
	defer r.Close()

	if r.SegmentCount() != 2 {
		t.Errorf("SegmentCount() = %d, want 2", r.SegmentCount())
	}
	ch, err := r.Channel("/'G'/'C'")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	got, err := r.ReadInt32(ch)
	if err != nil {
		t.Fatalf("ReadInt32() error = %v", err)
	}
	if diff := cmp.Diff([]int32{1, 2, 3, 4, 5, 6, 7, 8}, got); diff != "" {
		t.Errorf("ReadInt32() mismatch (-want +got):\n%s", diff)
	}
}

func TestWriterSkipsUnchangedPropertyReemission(t *testing.T) {
	var buf bytes.Buffer
	w := mustWriter(t, &buf)

	if err := w.CreateChannel("G", "C", DataTypeI32); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.SetChannelProperty("G", "C", "status", "valid"); err != nil {
		t.Fatalf("SetChannelProperty() error = %v", err)
	}
	if err := w.WriteInt32("G", "C", []int32{1, 2}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	// Same value again: the channel has nothing new to say, so the second
	// segment carries raw data only.
	if err := w.SetChannelProperty("G", "C", "status", "valid"); err != nil {
		t.Fatalf("SetChannelProperty() error = %v", err)
	}
	if err := w.WriteInt32("G", "C", []int32{3, 4}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	leadIns := walkLeadIns(t, buf.Bytes())
	if len(leadIns) != 2 {
		t.Fatalf("file has %d segments, want 2", len(leadIns))
	}
	if leadIns[1].containsMetadata {
		t.Errorf("second segment = %+v, want raw data only", leadIns[1])
	}
}

func TestWriteReadRoundTripCompanionIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tdms")

	w, err := Create(path, WithCompanionIndex(true))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.CreateChannel("G", "C", DataTypeF64); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	want := []float64{1, 2, 3}
	if err := w.WriteFloat64("G", "C", want); err != nil {
		t.Fatalf("WriteFloat64() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	indexInfo, err := os.Stat(companionIndexPath(path))
	if err != nil {
		t.Fatalf("stat companion index: %v", err)
	}
	dataInfo, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat data file: %v", err)
	}
	if indexInfo.Size() >= dataInfo.Size() {
		t.Errorf("companion index (%d bytes) is not smaller than the data file (%d bytes)", indexInfo.Size(), dataInfo.Size())
	}

	r, err := Open(path, WithFingerprintValidation(true))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	ch, err := r.Channel("/'G'/'C'")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	got, err := r.ReadFloat64(ch)
	if err != nil {
		t.Fatalf("ReadFloat64() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadFloat64() round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadRoundTripNoIndexFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tdms")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := w.CreateChannel("G", "C", DataTypeI32); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	if err := w.WriteInt32("G", "C", []int32{7, 8, 9}); err != nil {
		t.Fatalf("WriteInt32() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	ch, err := r.Channel("/'G'/'C'")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	got, err := r.ReadInt32(ch)
	if err != nil {
		t.Fatalf("ReadInt32() error = %v", err)
	}
	if diff := cmp.Diff([]int32{7, 8, 9}, got); diff != "" {
		t.Errorf("ReadInt32() round trip mismatch (-want +got):\n%s", diff)
	}
}
