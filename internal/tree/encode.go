package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Marshal encodes t as indented JSON in the {"Title": [records...]} shape.
// Keys keep their document order; "kids" is written only when present and
// "expanded" only when true.
func Marshal(t Tree) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTree(&buf, t); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indenting document: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Encode writes Marshal's output to w.
func Encode(w io.Writer, t Tree) error {
	b, err := Marshal(t)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func writeTree(buf *bytes.Buffer, t Tree) error {
	if t.Title == "" && len(t.Group) == 0 {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteByte('{')
	if err := writeString(buf, t.Title); err != nil {
		return err
	}
	buf.WriteString(":[")
	for i, r := range t.Group {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeRecord(buf, r); err != nil {
			return err
		}
	}
	buf.WriteString("]}")
	return nil
}

func writeRecord(buf *bytes.Buffer, r Record) error {
	buf.WriteString(`{"data":{`)
	for i, f := range r.Data.list {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, f.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeScalar(buf, f.Value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	if r.Kids != nil {
		buf.WriteString(`,"kids":`)
		if err := writeTree(buf, *r.Kids); err != nil {
			return err
		}
	}
	if r.Expanded {
		buf.WriteString(`,"expanded":true`)
	}
	buf.WriteByte('}')
	return nil
}

func writeScalar(buf *bytes.Buffer, s Scalar) error {
	switch s.kind {
	case KindString:
		return writeString(buf, s.str)
	case KindNumber:
		if math.IsInf(s.num, 0) || math.IsNaN(s.num) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(strconv.FormatFloat(s.num, 'f', -1, 64))
	case KindBool:
		buf.WriteString(strconv.FormatBool(s.b))
	default:
		buf.WriteString("null")
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding string: %w", err)
	}
	buf.Write(b)
	return nil
}
