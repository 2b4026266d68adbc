// Package tdms implements the segment engine of the TDMS 2.0 binary file
// format: the primitive codec, object path grammar, property value types,
// object model, segment codec, incremental writer, random-access reader,
// and defragmenter.
//
// A minimal write/read round trip:
//
//	w, err := tdms.Create("out.tdms")
//	if err != nil {
//		return err
//	}
//	if err := w.CreateChannel("group", "channel", tdms.DataTypeF64); err != nil {
//		return err
//	}
//	if err := w.WriteFloat64("group", "channel", []float64{1, 2, 3}); err != nil {
//		return err
//	}
//	if err := w.Close(); err != nil {
//		return err
//	}
//
//	r, err := tdms.Open("out.tdms")
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	ch, err := r.Channel("/'group'/'channel'")
//	if err != nil {
//		return err
//	}
//	values, err := r.ReadFloat64(ch)
package tdms

// Version codes this library accepts in a segment lead-in.
const (
	Version2_0 uint32 = 4712
	Version2_0Variant uint32 = 4713
)
