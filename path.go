package tdms

import "strings"

// PathKind identifies which level of the object hierarchy a [ParsedPath]
// refers to.
type PathKind int

const (
	PathRoot PathKind = iota
	PathGroup
	PathChannel
)

// ParsedPath is the decomposition of a TDMS object path.
type ParsedPath struct {
	Kind    PathKind
	Group   string
	Channel string
}

// FormatPath builds a TDMS object path from a group and channel name. An
// empty group yields the root path "/". An empty channel with a non-empty
// group yields a group path. Single quotes in either name are escaped as
// two single quotes.
func FormatPath(group, channel string) string {
	if group == "" {
		return "/"
	}

	var b strings.Builder
	b.WriteByte('/')
	writeQuotedComponent(&b, group)

	if channel != "" {
		b.WriteByte('/')
		writeQuotedComponent(&b, channel)
	}

	return b.String()
}

func writeQuotedComponent(b *strings.Builder, name string) {
	b.WriteByte('\'')
	b.WriteString(strings.ReplaceAll(name, "'", "''"))
	b.WriteByte('\'')
}

// ParsePath decomposes a TDMS object path into its group/channel
// components. Returns [ErrMalformedPath] for unbalanced quotes or any
// deviation from the grammar.
func ParsePath(path string) (ParsedPath, error) {
	if path == "/" {
		return ParsedPath{Kind: PathRoot}, nil
	}

	components, err := splitPathComponents(path)
	if err != nil {
		return ParsedPath{}, err
	}

	switch len(components) {
	case 1:
		return ParsedPath{Kind: PathGroup, Group: components[0]}, nil
	case 2:
		return ParsedPath{Kind: PathChannel, Group: components[0], Channel: components[1]}, nil
	default:
		return ParsedPath{}, ErrMalformedPath
	}
}

// parsePathParts is a convenience wrapper returning bare group/channel
// strings, used internally where the full [ParsedPath] isn't needed.
func parsePathParts(path string) (group, channel string, err error) {
	p, err := ParsePath(path)
	if err != nil {
		return "", "", err
	}
	return p.Group, p.Channel, nil
}

// splitPathComponents walks a path of the form /'a'/'b'/... honouring ''
// as an escaped quote within a component, and returns the decoded
// components.
func splitPathComponents(path string) ([]string, error) {
	components := make([]string, 0, 2)
	i := 0
	n := len(path)

	for i < n {
		if path[i] != '/' {
			return nil, ErrMalformedPath
		}
		i++

		if i >= n || path[i] != '\'' {
			return nil, ErrMalformedPath
		}
		i++

		var b strings.Builder
		closed := false
		for i < n {
			c := path[i]
			if c == '\'' {
				if i+1 < n && path[i+1] == '\'' {
					b.WriteByte('\'')
					i += 2
					continue
				}
				closed = true
				i++
				break
			}
			b.WriteByte(c)
			i++
		}

		if !closed {
			return nil, ErrMalformedPath
		}

		components = append(components, b.String())
	}

	if len(components) == 0 {
		return nil, ErrMalformedPath
	}

	return components, nil
}
