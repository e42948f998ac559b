package tree

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ordersTree() Tree {
	items := New("Items", Record{Data: NewFields(Field{"sku", String("A")})})
	return New("Orders",
		Record{
			Data: NewFields(Field{"id", Number(1)}, Field{"total", Number(10)}),
			Kids: &items,
		},
	)
}

func TestScalarString(t *testing.T) {
	tests := []struct {
		name string
		in   Scalar
		want string
	}{
		{"string", String("abc"), "abc"},
		{"integer", Number(10), "10"},
		{"fraction", Number(1.5), "1.5"},
		{"negative", Number(-0.25), "-0.25"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"null", Null(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.String())
		})
	}
}

// TestFieldsKeepOrder verifies that Set on an existing key keeps its
// position, since the first record's key order decides column order.
func TestFieldsKeepOrder(t *testing.T) {
	f := NewFields(Field{"b", Number(1)}, Field{"a", Number(2)})
	f.Set("b", Number(3))
	f.Set("c", Bool(true))

	assert.Equal(t, []string{"b", "a", "c"}, f.Keys())
	v, ok := f.Get("b")
	require.True(t, ok)
	assert.Equal(t, "3", v.String())

	_, ok = f.Get("missing")
	assert.False(t, ok)
}

func TestHasKids(t *testing.T) {
	empty := New("Empty")
	assert.False(t, Record{}.HasKids())
	assert.False(t, Record{Kids: &empty}.HasKids())
	assert.True(t, ordersTree().Group[0].HasKids())
}

// TestCloneIsDeep verifies that edits to a clone never reach the original,
// including nested children.
func TestCloneIsDeep(t *testing.T) {
	orig := ordersTree()
	c := orig.Clone()

	c.Group[0].Expanded = true
	c.Group[0].Data.Set("id", Number(99))
	c.Group[0].Kids.Group[0].Data.Set("sku", String("Z"))
	c.Group[0].Kids.Group = nil

	assert.False(t, orig.Group[0].Expanded)
	id, _ := orig.Group[0].Data.Get("id")
	assert.Equal(t, "1", id.String())
	require.Len(t, orig.Group[0].Kids.Group, 1)
	sku, _ := orig.Group[0].Kids.Group[0].Data.Get("sku")
	assert.Equal(t, "A", sku.String())
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"id", "total"}, ordersTree().Columns())
	assert.Empty(t, New("X").Columns())
}

func TestMeasure(t *testing.T) {
	s := Measure(ordersTree())
	assert.Equal(t, Stats{Groups: 2, Records: 2, Depth: 1}, s)
}

func TestWalkPaths(t *testing.T) {
	var paths []string
	Walk(ordersTree(), func(v Visit) bool {
		paths = append(paths, v.Path)
		return true
	})
	assert.Equal(t, []string{"Orders", "Orders[0].Items"}, paths)
}

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "group as array",
			doc:  `{"Orders": [{"data": {"id": 1, "total": 10}, "kids": {"Items": [{"data": {"sku": "A"}}]}}]}`,
		},
		{
			name: "records wrapper",
			doc:  `{"Orders": {"records": [{"data": {"id": 1, "total": 10}, "kids": {"Items": {"records": [{"data": {"sku": "A"}}]}}}]}}`,
		},
		{
			name: "yaml",
			doc: `
Orders:
  - data: {id: 1, total: 10}
    kids:
      Items:
        - data: {sku: A}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DecodeBytes([]byte(tt.doc))
			require.NoError(t, err)
			if diff := cmp.Diff(ordersTree(), res.Tree, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("decoded tree mismatch (-want +got):\n%s", diff)
			}
			assert.Empty(t, res.Warnings)
		})
	}
}

// TestDecodeKeepsKeyOrder verifies that column order follows the document,
// not alphabetical map order.
func TestDecodeKeepsKeyOrder(t *testing.T) {
	res, err := DecodeBytes([]byte(`{"T": [{"data": {"zeta": 1, "alpha": 2, "mid": 3}}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, res.Tree.Columns())
}

func TestDecodeBareArray(t *testing.T) {
	res, err := DecodeBytes([]byte(`[{"data": {"a": true}}, {"data": {"a": false}}]`), WithTitle("rows"))
	require.NoError(t, err)
	assert.Equal(t, "rows", res.Tree.Title)
	require.Len(t, res.Tree.Group, 2)
	v, _ := res.Tree.Group[1].Data.Get("a")
	assert.Equal(t, "false", v.String())
}

func TestDecodePlainRecords(t *testing.T) {
	res, err := DecodeBytes([]byte(`{"People": [{"name": "Ada", "age": 36}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, res.Tree.Columns())
}

func TestDecodeMultipleTitles(t *testing.T) {
	res, err := DecodeBytes([]byte(`{"First": [], "Second": [], "Third": []}`))
	require.NoError(t, err)
	assert.Equal(t, "First", res.Tree.Title)
	assert.Equal(t, []string{"Second", "Third"}, res.Ignored)
}

func TestDecodeDegradesSoftly(t *testing.T) {
	res, err := DecodeBytes([]byte(`{"X": [1, {"kids": null}, {"data": {"nested": {"a": [1,2]}}}]}`))
	require.NoError(t, err)
	require.Len(t, res.Tree.Group, 2)
	assert.Len(t, res.Warnings, 1)
	assert.Equal(t, 0, res.Tree.Group[0].Data.Len())
	assert.Nil(t, res.Tree.Group[0].Kids)

	nested, ok := res.Tree.Group[1].Data.Get("nested")
	require.True(t, ok)
	assert.Equal(t, `{"a":[1,2]}`, nested.String())
}

func TestDecodeEmpty(t *testing.T) {
	for _, doc := range []string{"", "   ", "{}", "null"} {
		res, err := DecodeBytes([]byte(doc))
		require.NoError(t, err, "doc %q", doc)
		assert.True(t, res.Tree.Empty(), "doc %q", doc)
	}

	res, err := DecodeBytes([]byte(`{"X": []}`))
	require.NoError(t, err)
	assert.Equal(t, "X", res.Tree.Title)
	assert.True(t, res.Tree.Empty())
}

func TestDecodeSyntaxError(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"X": [`))
	assert.Error(t, err)
}

func TestDecodeExpandedFlag(t *testing.T) {
	res, err := DecodeBytes([]byte(`{"T": [{"data": {"a": 1}, "expanded": true, "kids": {"K": [{"data": {"b": 2}}]}}]}`))
	require.NoError(t, err)
	assert.True(t, res.Tree.Group[0].Expanded)
	assert.True(t, res.Tree.Group[0].HasKids())
}

func TestEncodeRoundTrip(t *testing.T) {
	orig := ordersTree()
	orig.Group[0].Expanded = true
	orig.Group = append(orig.Group, Record{Data: NewFields(
		Field{"id", Number(2)},
		Field{"note", String(`quote "me"`)},
		Field{"paid", Bool(false)},
		Field{"ref", Null()},
	)})

	b, err := Marshal(orig)
	require.NoError(t, err)

	res, err := DecodeBytes(b)
	require.NoError(t, err)
	if diff := cmp.Diff(orig, res.Tree, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeOmitsDefaults(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Encode(&buf, New("T", Record{Data: NewFields(Field{"a", Number(1)})})))
	out := buf.String()
	assert.NotContains(t, out, "kids")
	assert.NotContains(t, out, "expanded")
	assert.True(t, strings.HasPrefix(out, "{\n  \"T\": ["))
}
