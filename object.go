package tdms

// orderedProperties is an insertion-ordered map of property name to
// [Property]. TDMS property lists have "last write wins" semantics but
// readers are still expected to enumerate them in first-seen order,
// so a plain map isn't enough on its own.
type orderedProperties struct {
	order []string
	items map[string]Property
}

func newOrderedProperties() *orderedProperties {
	return &orderedProperties{items: make(map[string]Property)}
}

func (p *orderedProperties) set(prop Property) {
	if _, exists := p.items[prop.Name]; !exists {
		p.order = append(p.order, prop.Name)
	}
	p.items[prop.Name] = prop
}

func (p *orderedProperties) get(name string) (Property, bool) {
	v, ok := p.items[name]
	return v, ok
}

func (p *orderedProperties) delete(name string) {
	if _, exists := p.items[name]; !exists {
		return
	}
	delete(p.items, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *orderedProperties) len() int {
	return len(p.order)
}

// list returns the properties in insertion order, suitable for encoding.
func (p *orderedProperties) list() []Property {
	out := make([]Property, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.items[name])
	}
	return out
}

func (p *orderedProperties) clone() *orderedProperties {
	c := &orderedProperties{
		order: append([]string(nil), p.order...),
		items: make(map[string]Property, len(p.items)),
	}
	for k, v := range p.items {
		c.items[k] = v
	}
	return c
}

// toMap copies the properties into a plain map for the read-only public
// view exposed on [File], [Group] and [Channel].
func (p *orderedProperties) toMap() map[string]Property {
	out := make(map[string]Property, len(p.items))
	for k, v := range p.items {
		out[k] = v
	}
	return out
}

// chunkRef is used by the reader to answer random-access queries without
// re-scanning the file.
// It describes the values one segment contributes to a channel, as a
// flat sequence of numChunks*valuesPerChunk values reachable by repeated
// striding from dataOffset.
//
// For non-interleaved data, valuesPerChunk is the segment's per-object
// value count and chunkStride is the full per-chunk segment byte size, so
// successive repeats land on successive chunk boundaries. For interleaved
// data, valuesPerChunk is always 1 and chunkStride is the row stride
// between consecutive values of the same channel, so the same
// dataOffset+i*chunkStride addressing scheme covers both layouts.
type chunkRef struct {
	dataOffset     int64
	numChunks      uint64
	valuesPerChunk uint64
	chunkStride    int64
	chunkByteSize  int64 // byte size of one repeat (valuesPerChunk values) for this object
	dataType       DataType
	bigEndian      bool
}

// File is the read-only, in-memory object model for an open TDMS file.
// It mirrors the hierarchy on disk: a single root carrying
// properties, a set of named groups, and within each group a set of named
// channels.
type File struct {
	Properties map[string]Property
	Groups     map[string]*Group

	groupOrder []string
}

// Group is one group object beneath the file root.
type Group struct {
	Name       string
	Properties map[string]Property
	Channels   map[string]*Channel

	channelOrder []string
}

// Channel is one channel object beneath a [Group]. Its raw data is not
// loaded eagerly; use the streaming methods on [Reader] to pull values.
type Channel struct {
	Name       string
	GroupName  string
	DataType   DataType
	Properties map[string]Property

	path           string
	totalNumValues uint64
	chunks         []chunkRef
	daqmxIndex     *rawIndex
}

// GroupNames returns the group names in the order their objects first
// appeared in the file.
func (f *File) GroupNames() []string {
	return append([]string(nil), f.groupOrder...)
}

// ChannelNames returns the channel names in the order their objects first
// appeared in the file.
func (g *Group) ChannelNames() []string {
	return append([]string(nil), g.channelOrder...)
}

// Path returns the channel's fully-qualified object path, e.g.
// /'group'/'channel'.
func (c *Channel) Path() string {
	return c.path
}

// Len returns the total number of values recorded for this channel across
// every segment seen so far.
func (c *Channel) Len() uint64 {
	return c.totalNumValues
}

// objectTree is the mutable builder-side counterpart of [File], used while
// scanning segments. The reader maintains one of these to accumulate the
// public object model as it scans; the writer keeps its own
// [EffectiveState] instead.
type objectTree struct {
	rootProperties *orderedProperties
	groups         map[string]*groupNode
	groupOrder     []string
}

type groupNode struct {
	name         string
	properties   *orderedProperties
	channels     map[string]*channelNode
	channelOrder []string
}

type channelNode struct {
	name           string
	groupName      string
	path           string
	dataType       DataType
	properties     *orderedProperties
	totalNumValues uint64
	chunks         []chunkRef
	daqmxIndex     *rawIndex
}

func newObjectTree() *objectTree {
	return &objectTree{
		rootProperties: newOrderedProperties(),
		groups:         make(map[string]*groupNode),
	}
}

func (t *objectTree) group(name string) *groupNode {
	g, ok := t.groups[name]
	if !ok {
		g = &groupNode{name: name, properties: newOrderedProperties(), channels: make(map[string]*channelNode)}
		t.groups[name] = g
		t.groupOrder = append(t.groupOrder, name)
	}
	return g
}

func (g *groupNode) channel(name string, dt DataType, path string) *channelNode {
	c, ok := g.channels[name]
	if !ok {
		c = &channelNode{name: name, groupName: g.name, path: path, dataType: dt, properties: newOrderedProperties()}
		g.channels[name] = c
		g.channelOrder = append(g.channelOrder, name)
	}
	return c
}

// snapshot renders the current state of the tree as the public, read-only
// [File] object model.
func (t *objectTree) snapshot() *File {
	f := &File{
		Properties: t.rootProperties.toMap(),
		Groups:     make(map[string]*Group, len(t.groups)),
		groupOrder: append([]string(nil), t.groupOrder...),
	}

	for _, gname := range t.groupOrder {
		gn := t.groups[gname]
		grp := &Group{
			Name:         gn.name,
			Properties:   gn.properties.toMap(),
			Channels:     make(map[string]*Channel, len(gn.channels)),
			channelOrder: append([]string(nil), gn.channelOrder...),
		}
		for _, cname := range gn.channelOrder {
			cn := gn.channels[cname]
			grp.Channels[cname] = &Channel{
				Name:           cn.name,
				GroupName:      cn.groupName,
				DataType:       cn.dataType,
				Properties:     cn.properties.toMap(),
				path:           cn.path,
				totalNumValues: cn.totalNumValues,
				chunks:         append([]chunkRef(nil), cn.chunks...),
				daqmxIndex:     cn.daqmxIndex,
			}
		}
		f.Groups[gname] = grp
	}

	return f
}
