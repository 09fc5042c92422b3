package prestashop

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/clbanning/mxj/v2"
	"github.com/shopspring/decimal"
)

// Keys used by Record for elements carrying XML attributes
const (
	AttrsKey = "attrs"
	ValueKey = "value"
)

// ErrEmptyDocument is returned when a response has no element under <prestashop>
var ErrEmptyDocument = errors.New("prestashop: empty document")

// Record is a decoded PrestaShop XML element.
//
// A leaf element without attributes decodes to its trimmed text. A leaf with
// attributes decodes to {"attrs": {...}, "value": "..."}. An element with
// children decodes to a nested Record, and repeated children of the same name
// decode to a []any. xlink:href attributes are dropped.
type Record map[string]any

// LangValue is one translation of a multi-language field
type LangValue struct {
	LangID int64
	Value  string
}

// ID returns the record "id" field
func (r Record) ID() int64 {
	return r.Int64("id")
}

// String returns the text of a field. Elements with attributes return their
// "value"; missing or nested fields return "".
func (r Record) String(key string) string {
	return textOf(r[key])
}

// Int64 returns a numeric field, 0 when empty or not numeric
func (r Record) Int64(key string) int64 {
	s := r.String(key)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Decimal returns a decimal field, zero when empty or invalid
func (r Record) Decimal(key string) decimal.Decimal {
	d, err := decimal.NewFromString(r.String(key))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Bool returns false for "", "0" and "false"
func (r Record) Bool(key string) bool {
	switch r.String(key) {
	case "", "0", "false":
		return false
	}
	return true
}

// Has reports whether the field is present
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Child returns a nested element, or an empty Record
func (r Record) Child(key string) Record {
	if child, ok := r[key].(Record); ok {
		return child
	}
	return Record{}
}

// Attrs returns the XML attributes of the element
func (r Record) Attrs() Record {
	return r.Child(AttrsKey)
}

// List returns a repeated element as a slice. PrestaShop returns a single
// element when there is only one entry, and an empty string when there is
// none; both are normalized here.
func (r Record) List(key string) []Record {
	return listOf(r[key])
}

// Languages returns the translations of a multi-language field
// (<name><language id="1">...</language>...</name>).
func (r Record) Languages(key string) []LangValue {
	field, ok := r[key].(Record)
	if !ok {
		return nil
	}
	var values []LangValue
	for _, item := range listOf(field["language"]) {
		id, err := strconv.ParseInt(item.Attrs().String("id"), 10, 64)
		if err != nil {
			continue
		}
		values = append(values, LangValue{LangID: id, Value: textOf(item[ValueKey])})
	}
	return values
}

// IsTranslatable reports whether the field holds per-language values
func (r Record) IsTranslatable(key string) bool {
	field, ok := r[key].(Record)
	if !ok {
		return false
	}
	_, ok = field["language"]
	return ok
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case Record:
		if s, ok := t[ValueKey].(string); ok {
			return s
		}
	}
	return ""
}

func listOf(v any) []Record {
	switch t := v.(type) {
	case Record:
		return []Record{t}
	case []any:
		items := make([]Record, 0, len(t))
		for _, item := range t {
			switch it := item.(type) {
			case Record:
				items = append(items, it)
			case string:
				items = append(items, Record{ValueKey: it})
			}
		}
		return items
	}
	return nil
}

func init() {
	mxj.XMLEscapeChars(true)
}

const xlinkNamespace = "http://www.w3.org/1999/xlink"

// Decode parses a PrestaShop document and returns the name and content of
// the first element under the <prestashop> root.
func Decode(data []byte) (string, Record, error) {
	doc, err := mxj.NewMapXml(data)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil, ErrEmptyDocument
		}
		return "", nil, fmt.Errorf("prestashop: decode: %w", err)
	}
	var root map[string]any
	for _, v := range doc {
		root, _ = v.(map[string]any)
	}
	var names []string
	for k := range root {
		if !isAttrKey(k) && k != textKey {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return "", nil, ErrEmptyDocument
	}
	slices.Sort(names)

	node := fromMap(root[names[0]])
	if list, ok := node.([]any); ok {
		node = list[0]
	}
	switch n := node.(type) {
	case Record:
		return names[0], n, nil
	case string:
		return names[0], Record{ValueKey: n}, nil
	}
	return names[0], Record{}, nil
}

// mxj keys attributes with a leading "-" and the text of an element
// carrying attributes with "#text"
const textKey = "#text"

func isAttrKey(k string) bool {
	return len(k) > 1 && k[0] == '-'
}

// fromMap converts a decoded mxj value to the Record layout
func fromMap(v any) any {
	switch t := v.(type) {
	case map[string]any:
		rec := Record{}
		attrs := Record{}
		for k, val := range t {
			switch {
			case k == textKey:
				rec[ValueKey] = fmt.Sprint(val)
			case isAttrKey(k):
				// xlink:href and namespace declarations
				if name := k[1:]; name != "href" && name != "xlink" && name != "xmlns" {
					attrs[name] = fmt.Sprint(val)
				}
			default:
				rec[k] = fromMap(val)
			}
		}
		if len(attrs) == 0 {
			if text, ok := rec[ValueKey].(string); ok && len(rec) == 1 {
				return text
			}
			if len(rec) == 0 {
				return ""
			}
			return rec
		}
		rec[AttrsKey] = attrs
		if len(rec) == 1 {
			rec[ValueKey] = ""
		}
		return rec
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = fromMap(item)
		}
		return items
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// Encode renders a record as a PrestaShop document:
// <prestashop><node>...</node></prestashop>. Elements are written in key
// order.
func Encode(node string, r Record) ([]byte, error) {
	doc := mxj.Map{"prestashop": map[string]any{
		"-xmlns:xlink": xlinkNamespace,
		node:           toMap(r),
	}}
	body, err := doc.Xml()
	if err != nil {
		return nil, fmt.Errorf("prestashop: encode %s: %w", node, err)
	}
	return append([]byte(xml.Header), body...), nil
}

// toMap converts a Record value to the mxj layout. An element with a text
// value drops its children.
func toMap(v any) any {
	switch t := v.(type) {
	case Record:
		m := make(map[string]any, len(t))
		for k, av := range t.Attrs() {
			m["-"+k] = textOf(av)
		}
		if text, ok := t[ValueKey]; ok {
			m[textKey] = fmt.Sprint(text)
			return m
		}
		for k, val := range t {
			if k != AttrsKey {
				m[k] = toMap(val)
			}
		}
		return m
	case map[string]any:
		return toMap(Record(t))
	case []Record:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = toMap(item)
		}
		return items
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = toMap(item)
		}
		return items
	case string:
		return t
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
