package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Mr-Dark-debug/jsonview/pkg/jsonutil"
)

// DefaultTitle names the group that wraps a bare top-level array.
const DefaultTitle = "data"

// Result is a decoded document plus what the decoder had to drop.
type Result struct {
	Tree Tree
	// Ignored lists top-level titles after the first one; only one named
	// group per tree is rendered.
	Ignored []string
	// Warnings describes entries that could not be read as records.
	Warnings []string
}

// DecodeOption configures Decode.
type DecodeOption func(*decoder)

// WithTitle sets the title used to wrap bare arrays.
func WithTitle(title string) DecodeOption {
	return func(d *decoder) {
		if title != "" {
			d.title = title
		}
	}
}

// Decode reads a JSON or YAML document and converts it to a Tree.
func Decode(r io.Reader, opts ...DecodeOption) (*Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return DecodeBytes(b, opts...)
}

// DecodeBytes converts a JSON or YAML document to a Tree. Documents are
// parsed into yaml.v3 nodes so mapping order survives: the first title and
// the first record's field order are significant.
func DecodeBytes(b []byte, opts ...DecodeOption) (*Result, error) {
	d := &decoder{title: DefaultTitle, res: &Result{}}
	for _, opt := range opts {
		opt(d)
	}

	root, err := parseNode(b)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return d.res, nil
	}

	switch root.Kind {
	case yaml.MappingNode:
		d.res.Tree = d.tree(root, "")
	case yaml.SequenceNode:
		d.res.Tree = Tree{Title: d.title, Group: d.group(root, d.title)}
	default:
		if root.ShortTag() != "!!null" {
			d.warn("", "document is a scalar, not a mapping or array")
		}
	}
	return d.res, nil
}

func parseNode(b []byte) (*yaml.Node, error) {
	if jsonutil.LooksLikeJSON(b) {
		n, err := jsonNode(json.NewDecoder(bytes.NewReader(b)))
		if err == nil {
			return n, nil
		}
		// YAML flow style also starts with a brace; give yaml a chance
		// before reporting the JSON error.
		if yn, yerr := yamlNode(b); yerr == nil {
			return yn, nil
		}
		return nil, fmt.Errorf("decoding JSON document: %w", err)
	}
	n, err := yamlNode(b)
	if err != nil {
		return nil, fmt.Errorf("decoding YAML document: %w", err)
	}
	return n, nil
}

func yamlNode(b []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	return resolve(doc.Content[0]), nil
}

// jsonNode streams JSON tokens into a yaml node tree, which keeps object
// key order without a second representation.
func jsonNode(dec *json.Decoder) (*yaml.Node, error) {
	dec.UseNumber()
	n, err := jsonValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return n, nil
}

func jsonValue(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key %v is not a string", kt)
				}
				val, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, scalarNode("!!str", key), val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for dec.More() {
				val, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case string:
		return scalarNode("!!str", v), nil
	case json.Number:
		return scalarNode("!!float", v.String()), nil
	case bool:
		return scalarNode("!!bool", strconv.FormatBool(v)), nil
	case nil:
		return scalarNode("!!null", "null"), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

type decoder struct {
	title string
	res   *Result
}

func (d *decoder) warn(path, msg string) {
	if path == "" {
		d.res.Warnings = append(d.res.Warnings, msg)
		return
	}
	d.res.Warnings = append(d.res.Warnings, path+": "+msg)
}

// tree reads a {title: group} mapping. Only the first key is used; the
// rest are reported as ignored when they sit at the top level.
func (d *decoder) tree(m *yaml.Node, parent string) Tree {
	if len(m.Content) < 2 {
		return Tree{}
	}
	title := m.Content[0].Value
	path := title
	if parent != "" {
		path = parent + "." + title
	}
	for i := 2; i+1 < len(m.Content); i += 2 {
		if parent == "" {
			d.res.Ignored = append(d.res.Ignored, m.Content[i].Value)
		} else {
			d.warn(parent, "ignored extra title "+strconv.Quote(m.Content[i].Value))
		}
	}
	return Tree{Title: title, Group: d.groupValue(resolve(m.Content[1]), path)}
}

// groupValue accepts a plain array or the {"records": [...]} wrapper.
func (d *decoder) groupValue(n *yaml.Node, path string) Group {
	switch n.Kind {
	case yaml.SequenceNode:
		return d.group(n, path)
	case yaml.MappingNode:
		if recs := lookup(n, "records"); recs != nil {
			if recs.Kind == yaml.SequenceNode {
				return d.group(recs, path)
			}
			if recs.ShortTag() != "!!null" {
				d.warn(path, "records is not an array")
			}
			return Group{}
		}
		d.warn(path, "group is a mapping without records")
		return Group{}
	default:
		if n.ShortTag() != "!!null" {
			d.warn(path, "group is a scalar")
		}
		return Group{}
	}
}

func (d *decoder) group(seq *yaml.Node, path string) Group {
	g := make(Group, 0, len(seq.Content))
	for i, item := range seq.Content {
		item = resolve(item)
		rpath := path + "[" + strconv.Itoa(i) + "]"
		if item.Kind != yaml.MappingNode {
			d.warn(rpath, "record is not a mapping, skipped")
			continue
		}
		g = append(g, d.record(item, rpath))
	}
	return g
}

func (d *decoder) record(m *yaml.Node, path string) Record {
	data, kids, expanded := lookup(m, "data"), lookup(m, "kids"), lookup(m, "expanded")
	if data == nil && kids == nil && expanded == nil {
		return Record{Data: d.fields(m)}
	}

	var r Record
	if data != nil {
		if data.Kind == yaml.MappingNode {
			r.Data = d.fields(data)
		} else if data.ShortTag() != "!!null" {
			d.warn(path, "data is not a mapping")
		}
	}
	if kids != nil {
		switch kids.Kind {
		case yaml.MappingNode:
			if len(kids.Content) >= 2 {
				t := d.tree(kids, path)
				r.Kids = &t
			}
		case yaml.SequenceNode:
			t := Tree{Title: d.title, Group: d.group(kids, path+"."+d.title)}
			r.Kids = &t
		default:
			if kids.ShortTag() != "!!null" {
				d.warn(path, "kids is not a mapping")
			}
		}
	}
	if expanded != nil {
		var b bool
		if err := expanded.Decode(&b); err == nil {
			r.Expanded = b
		}
	}
	return r
}

func (d *decoder) fields(m *yaml.Node) Fields {
	var f Fields
	for i := 0; i+1 < len(m.Content); i += 2 {
		f.Set(m.Content[i].Value, scalar(resolve(m.Content[i+1])))
	}
	return f
}

// scalar converts a value node. Nested mappings and arrays are kept as
// their compact JSON text so they still show up in a cell.
func scalar(n *yaml.Node) Scalar {
	if n.Kind != yaml.ScalarNode {
		var v any
		if err := n.Decode(&v); err != nil {
			return Null()
		}
		return String(jsonutil.CompactValue(normalize(v)))
	}
	switch n.ShortTag() {
	case "!!null":
		return Null()
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return Bool(b)
		}
	case "!!int", "!!float":
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return Number(f)
		}
		var f float64
		if err := n.Decode(&f); err == nil {
			return Number(f)
		}
	}
	return String(n.Value)
}

// normalize turns yaml's map[any]any leftovers into JSON-marshalable maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolve(m.Content[i+1])
		}
	}
	return nil
}
