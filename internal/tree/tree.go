// Package tree defines the nested document model behind the tree table.
//
// A Tree is a single titled Group. A Group is an ordered list of Records.
// Each Record holds ordered scalar fields and, optionally, a nested Tree of
// children. Position inside a Group is the only identity a Record has.
package tree

import (
	"math"
	"strconv"
)

// Kind discriminates the value held by a Scalar.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Scalar is a single field value: a string, a number, a boolean or null.
type Scalar struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// String returns a string scalar.
func String(s string) Scalar { return Scalar{kind: KindString, str: s} }

// Number returns a numeric scalar.
func Number(n float64) Scalar { return Scalar{kind: KindNumber, num: n} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{kind: KindBool, b: b} }

// Null returns the null scalar, which renders as a blank cell.
func Null() Scalar { return Scalar{} }

// Kind reports which value the scalar holds.
func (s Scalar) Kind() Kind { return s.kind }

// String renders the scalar for display. Numbers use the shortest decimal
// form that round-trips ("10", "1.5"); null renders as "".
func (s Scalar) String() string {
	switch s.kind {
	case KindString:
		return s.str
	case KindNumber:
		return formatNumber(s.num)
	case KindBool:
		return strconv.FormatBool(s.b)
	default:
		return ""
	}
}

// Interface returns the scalar as a plain Go value (string, float64, bool or nil).
func (s Scalar) Interface() any {
	switch s.kind {
	case KindString:
		return s.str
	case KindNumber:
		return s.num
	case KindBool:
		return s.b
	default:
		return nil
	}
}

// Equal reports whether two scalars hold the same kind and value.
func (s Scalar) Equal(o Scalar) bool {
	return s.kind == o.kind && s.str == o.str && s.num == o.num && s.b == o.b
}

func formatNumber(n float64) string {
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Field is one named value inside a record's data.
type Field struct {
	Name  string
	Value Scalar
}

// Fields is an ordered field map. Key order is document order and decides
// the column order of a group.
type Fields struct {
	list []Field
}

// NewFields builds a field map from pairs. A repeated name keeps its first
// position and takes the last value.
func NewFields(pairs ...Field) Fields {
	var f Fields
	for _, p := range pairs {
		f.Set(p.Name, p.Value)
	}
	return f
}

// Keys returns the field names in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f.list))
	for i, p := range f.list {
		keys[i] = p.Name
	}
	return keys
}

// Get looks a field up by name.
func (f Fields) Get(name string) (Scalar, bool) {
	for _, p := range f.list {
		if p.Name == name {
			return p.Value, true
		}
	}
	return Scalar{}, false
}

// Set stores a value, keeping the position of an existing key.
func (f *Fields) Set(name string, v Scalar) {
	for i := range f.list {
		if f.list[i].Name == name {
			f.list[i].Value = v
			return
		}
	}
	f.list = append(f.list, Field{Name: name, Value: v})
}

// Len returns the number of fields.
func (f Fields) Len() int { return len(f.list) }

// All returns a copy of the fields in order.
func (f Fields) All() []Field {
	out := make([]Field, len(f.list))
	copy(out, f.list)
	return out
}

// Equal compares names, values and order.
func (f Fields) Equal(o Fields) bool {
	if len(f.list) != len(o.list) {
		return false
	}
	for i := range f.list {
		if f.list[i].Name != o.list[i].Name || !f.list[i].Value.Equal(o.list[i].Value) {
			return false
		}
	}
	return true
}

func (f Fields) clone() Fields {
	if f.list == nil {
		return Fields{}
	}
	return Fields{list: f.All()}
}

// Record is one row: its data fields, an optional nested tree of children
// and the expand flag of the child sub-table.
type Record struct {
	Data     Fields
	Kids     *Tree
	Expanded bool
}

// HasKids reports whether the record has a child group with at least one
// record. Only such records can be expanded.
func (r Record) HasKids() bool {
	return r.Kids != nil && len(r.Kids.Group) > 0
}

// Clone deep-copies the record, including its children.
func (r Record) Clone() Record {
	out := Record{Data: r.Data.clone(), Expanded: r.Expanded}
	if r.Kids != nil {
		kids := r.Kids.Clone()
		out.Kids = &kids
	}
	return out
}

// Group is an ordered sequence of records.
type Group []Record

// Clone deep-copies every record of the group.
func (g Group) Clone() Group {
	if g == nil {
		return nil
	}
	out := make(Group, len(g))
	for i, r := range g {
		out[i] = r.Clone()
	}
	return out
}

// Tree is a single named group of records.
type Tree struct {
	Title string
	Group Group
}

// New builds a tree from a title and its records.
func New(title string, records ...Record) Tree {
	return Tree{Title: title, Group: Group(records)}
}

// Clone deep-copies the tree.
func (t Tree) Clone() Tree {
	return Tree{Title: t.Title, Group: t.Group.Clone()}
}

// Columns returns the field names of the first record, which are the
// column list of the whole group. An empty group has no columns.
func (t Tree) Columns() []string {
	if len(t.Group) == 0 {
		return []string{}
	}
	return t.Group[0].Data.Keys()
}

// Empty reports whether the group has no records.
func (t Tree) Empty() bool { return len(t.Group) == 0 }
