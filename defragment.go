package tdms

import "fmt"

// Defragment reads the TDMS file at srcPath and writes an equivalent file
// to dstPath as a single consolidated segment, collapsing however many
// segments and property-update deltas the source accumulated into one
// up-front object list and one contiguous raw-data region per channel.
//
// Channels whose raw layout is DAQmx-scaled are carried through
// byte-for-byte: their raw bytes and scaler/width vectors are preserved
// verbatim, with only the index's chunk size rewritten to cover the
// consolidated payload. Their content is never reinterpreted.
func Defragment(srcPath, dstPath string) error {
	r, err := Open(srcPath)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := Create(dstPath)
	if err != nil {
		return err
	}

	if err := defragmentInto(r, w); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}

// defragmentInto walks the reader's object tree directly (rather than the
// public [File] snapshot) so properties re-emit in their original
// first-seen order, keeping repeated defragmentation byte-stable.
func defragmentInto(r *Reader, w *Writer) error {
	for _, prop := range r.tree.rootProperties.list() {
		if err := w.SetFileProperty(prop.Name, prop.Value); err != nil {
			return fmt.Errorf("defragment: root property %q: %w", prop.Name, err)
		}
	}

	for _, groupName := range r.tree.groupOrder {
		gn := r.tree.groups[groupName]
		w.ensureGroup(groupName)
		w.touchObject(FormatPath(groupName, ""))

		for _, prop := range gn.properties.list() {
			if err := w.SetGroupProperty(groupName, prop.Name, prop.Value); err != nil {
				return fmt.Errorf("defragment: group %q property %q: %w", groupName, prop.Name, err)
			}
		}

		for _, channelName := range gn.channelOrder {
			cn := gn.channels[channelName]

			ch, err := r.Channel(cn.path)
			if err != nil {
				return fmt.Errorf("defragment: channel %q: %w", cn.path, err)
			}

			switch cn.dataType {
			case DataTypeDAQmxRawData:
				raw, err := r.readChannelRawBytes(ch)
				if err != nil {
					return fmt.Errorf("defragment: channel %q: %w", cn.path, err)
				}
				if err := w.writeDAQmxRaw(groupName, channelName, cn.daqmxIndex, raw); err != nil {
					return fmt.Errorf("defragment: channel %q: %w", cn.path, err)
				}
			case DataTypeVoid:
				// Property-only channel: no raw data was ever indexed for it.
				if err := w.CreateChannel(groupName, channelName, DataTypeVoid); err != nil {
					return fmt.Errorf("defragment: create channel %q: %w", cn.path, err)
				}
				w.touchObject(cn.path)
			default:
				if err := w.CreateChannel(groupName, channelName, cn.dataType); err != nil {
					return fmt.Errorf("defragment: create channel %q: %w", cn.path, err)
				}
				if err := copyChannelValues(r, w, groupName, channelName, ch); err != nil {
					return fmt.Errorf("defragment: channel %q: %w", cn.path, err)
				}
			}

			for _, prop := range cn.properties.list() {
				if err := w.SetChannelProperty(groupName, channelName, prop.Name, prop.Value); err != nil {
					return fmt.Errorf("defragment: channel %q property %q: %w", cn.path, prop.Name, err)
				}
			}
		}
	}

	return nil
}

func copyChannelValues(r *Reader, w *Writer, group, channel string, c *Channel) error {
	switch c.DataType {
	case DataTypeI8:
		v, err := r.ReadInt8(c)
		if err != nil {
			return err
		}
		return w.WriteInt8(group, channel, v)
	case DataTypeI16:
		v, err := r.ReadInt16(c)
		if err != nil {
			return err
		}
		return w.WriteInt16(group, channel, v)
	case DataTypeI32:
		v, err := r.ReadInt32(c)
		if err != nil {
			return err
		}
		return w.WriteInt32(group, channel, v)
	case DataTypeI64:
		v, err := r.ReadInt64(c)
		if err != nil {
			return err
		}
		return w.WriteInt64(group, channel, v)
	case DataTypeU8:
		v, err := r.ReadUint8(c)
		if err != nil {
			return err
		}
		return w.WriteUint8(group, channel, v)
	case DataTypeU16:
		v, err := r.ReadUint16(c)
		if err != nil {
			return err
		}
		return w.WriteUint16(group, channel, v)
	case DataTypeU32:
		v, err := r.ReadUint32(c)
		if err != nil {
			return err
		}
		return w.WriteUint32(group, channel, v)
	case DataTypeU64:
		v, err := r.ReadUint64(c)
		if err != nil {
			return err
		}
		return w.WriteUint64(group, channel, v)
	case DataTypeF32:
		v, err := r.ReadFloat32(c)
		if err != nil {
			return err
		}
		return w.WriteFloat32(group, channel, v)
	case DataTypeF64:
		v, err := r.ReadFloat64(c)
		if err != nil {
			return err
		}
		return w.WriteFloat64(group, channel, v)
	case DataTypeBool:
		v, err := r.ReadBool(c)
		if err != nil {
			return err
		}
		return w.WriteBool(group, channel, v)
	case DataTypeTimestamp:
		v, err := r.ReadTimestamp(c)
		if err != nil {
			return err
		}
		return w.WriteTimestamp(group, channel, v)
	case DataTypeComplexF32:
		v, err := r.ReadComplex64(c)
		if err != nil {
			return err
		}
		return w.WriteComplex64(group, channel, v)
	case DataTypeComplexF64:
		v, err := r.ReadComplex128(c)
		if err != nil {
			return err
		}
		return w.WriteComplex128(group, channel, v)
	case DataTypeString:
		v, err := r.ReadStrings(c)
		if err != nil {
			return err
		}
		return w.WriteStrings(group, channel, v)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, c.DataType)
	}
}
