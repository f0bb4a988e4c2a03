package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Element types understood by the store.
const (
	TypeLine     = "line"
	TypeChild    = "child"
	TypeEndLine  = "endline"
	TypeRect     = "rect"
	TypeEllipse  = "ellipse"
	TypeStraight = "straight"
	TypeText     = "text"
	TypeUpdate   = "update"
	TypeDelete   = "delete"
)

var knownTypes = map[string]struct{}{
	TypeLine:     {},
	TypeChild:    {},
	TypeEndLine:  {},
	TypeRect:     {},
	TypeEllipse:  {},
	TypeStraight: {},
	TypeText:     {},
	TypeUpdate:   {},
	TypeDelete:   {},
}

// IsKnownType reports whether t is a recognized element type.
func IsKnownType(t string) bool {
	_, ok := knownTypes[t]
	return ok
}

// CheckType returns ErrUnknownType when the element's type is not recognized.
func CheckType(e *Element) error {
	if e == nil {
		return ErrInvalidMessage
	}
	if !IsKnownType(e.Type) {
		return ErrUnknownType.WithDetails(strconv.Quote(e.Type))
	}
	return nil
}

// Number is a numeric element field. Malformed input decodes to an invalid
// Number instead of failing the whole element; Sanitize replaces it with the
// field's default.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid Number holding v.
func Num(v float64) *Number {
	return &Number{Value: v, Valid: true}
}

// Float returns the value of n, or def when n is absent or malformed.
func (n *Number) Float(def float64) float64 {
	if n == nil || !n.Valid {
		return def
	}
	return n.Value
}

// UnmarshalJSON accepts JSON numbers and numeric strings. It never fails.
func (n *Number) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = Number{Value: f, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, ok := parseLeadingFloat(s); ok {
			*n = Number{Value: f, Valid: true}
			return nil
		}
	}
	*n = Number{}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, n.Value, 'f', -1, 64), nil
}

// parseLeadingFloat parses the longest numeric prefix of s ("12px" is 12).
func parseLeadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		start := exp
		for exp < len(s) && s[exp] >= '0' && s[exp] <= '9' {
			exp++
		}
		if exp > start {
			end = exp
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Element is one addressable unit of board state, or a structural mutation
// (update, delete, child point) against one.
//
// Numeric fields are pointers: a nil field is absent, which is not the same
// as zero. Fields the server does not interpret are kept in Extra and
// written back unchanged.
type Element struct {
	ID     string
	Type   string
	Tool   string
	Parent string
	// Time is the server acceptance time in Unix milliseconds.
	Time  int64
	Color string

	Size    *Number
	Opacity *Number
	X       *Number
	Y       *Number
	X2      *Number
	Y2      *Number
	DeltaX  *Number
	DeltaY  *Number

	// Children is the ordered sub-element sequence (wire key "_children").
	// nil means absent; an empty non-nil slice is an explicit empty list.
	Children []*Element

	Extra map[string]json.RawMessage
}

// HasChildren reports whether the element carries a children sequence.
func (e *Element) HasChildren() bool {
	return e != nil && e.Children != nil
}

// SetExtra stores an uninterpreted field. Known keys are ignored.
func (e *Element) SetExtra(key string, value any) error {
	if isKnownKey(key) {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if e.Extra == nil {
		e.Extra = make(map[string]json.RawMessage)
	}
	e.Extra[key] = b
	return nil
}

func isKnownKey(key string) bool {
	switch key {
	case "id", "type", "tool", "parent", "time", "color", "size", "opacity",
		"x", "y", "x2", "y2", "deltax", "deltay", "_children":
		return true
	}
	return false
}

// UnmarshalJSON decodes an element leniently: type-mismatched fields decode
// to their zero or invalid value rather than failing, and a non-array
// "_children" decodes to an empty list. Only a non-object input is an error.
func (e *Element) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		return ErrInvalidMessage.WithDetails("null element")
	}
	*e = Element{}
	for key, v := range raw {
		switch key {
		case "id":
			e.ID = decodeString(v)
		case "type":
			e.Type = decodeString(v)
		case "tool":
			e.Tool = decodeString(v)
		case "parent":
			e.Parent = decodeString(v)
		case "color":
			e.Color = decodeString(v)
		case "time":
			e.Time = int64(decodeNumber(v).Float(0))
		case "size":
			e.Size = decodeNumber(v)
		case "opacity":
			e.Opacity = decodeNumber(v)
		case "x":
			e.X = decodeNumber(v)
		case "y":
			e.Y = decodeNumber(v)
		case "x2":
			e.X2 = decodeNumber(v)
		case "y2":
			e.Y2 = decodeNumber(v)
		case "deltax":
			e.DeltaX = decodeNumber(v)
		case "deltay":
			e.DeltaY = decodeNumber(v)
		case "_children":
			e.Children = decodeChildren(v)
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]json.RawMessage)
			}
			e.Extra[key] = append(json.RawMessage(nil), v...)
		}
	}
	return nil
}

func decodeString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var f json.Number
	if err := json.Unmarshal(v, &f); err == nil {
		return f.String()
	}
	return ""
}

func decodeNumber(v json.RawMessage) *Number {
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	n := new(Number)
	_ = n.UnmarshalJSON(v)
	return n
}

// decodeChildren returns nil for a JSON null, so such a message carries no
// batch. Any other non-array value yields an empty batch.
func decodeChildren(v json.RawMessage) []*Element {
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return []*Element{}
	}
	children := make([]*Element, 0, len(items))
	for _, item := range items {
		child := new(Element)
		if err := child.UnmarshalJSON(item); err != nil {
			continue
		}
		children = append(children, child)
	}
	return children
}

type elementWire struct {
	ID       string     `json:"id,omitempty"`
	Type     string     `json:"type,omitempty"`
	Tool     string     `json:"tool,omitempty"`
	Parent   string     `json:"parent,omitempty"`
	Time     int64      `json:"time,omitempty"`
	Color    string     `json:"color,omitempty"`
	Size     *Number    `json:"size,omitempty"`
	Opacity  *Number    `json:"opacity,omitempty"`
	X        *Number    `json:"x,omitempty"`
	Y        *Number    `json:"y,omitempty"`
	X2       *Number    `json:"x2,omitempty"`
	Y2       *Number    `json:"y2,omitempty"`
	DeltaX   *Number    `json:"deltax,omitempty"`
	DeltaY   *Number    `json:"deltay,omitempty"`
	// Children is a pointer so an empty non-nil list is still written.
	Children *[]*Element `json:"_children,omitempty"`
}

// MarshalJSON implements json.Marshaler. Extra fields are appended in key order.
func (e Element) MarshalJSON() ([]byte, error) {
	var children *[]*Element
	if e.Children != nil {
		children = &e.Children
	}
	b, err := json.Marshal(elementWire{
		ID: e.ID, Type: e.Type, Tool: e.Tool, Parent: e.Parent, Time: e.Time, Color: e.Color,
		Size: e.Size, Opacity: e.Opacity, X: e.X, Y: e.Y, X2: e.X2, Y2: e.Y2,
		DeltaX: e.DeltaX, DeltaY: e.DeltaY, Children: children,
	})
	if err != nil || len(e.Extra) == 0 {
		return b, err
	}

	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		if !isKnownKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	for _, k := range keys {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(e.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := *e
	c.Size = cloneNumber(e.Size)
	c.Opacity = cloneNumber(e.Opacity)
	c.X = cloneNumber(e.X)
	c.Y = cloneNumber(e.Y)
	c.X2 = cloneNumber(e.X2)
	c.Y2 = cloneNumber(e.Y2)
	c.DeltaX = cloneNumber(e.DeltaX)
	c.DeltaY = cloneNumber(e.DeltaY)
	if e.Children != nil {
		c.Children = make([]*Element, len(e.Children))
		for i, child := range e.Children {
			c.Children[i] = child.Clone()
		}
	}
	if e.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

func cloneNumber(n *Number) *Number {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

// Merge copies every field present in src onto e. Identity, kind and the
// acceptance time are never taken from src.
func (e *Element) Merge(src *Element) {
	if src == nil {
		return
	}
	if src.Parent != "" {
		e.Parent = src.Parent
	}
	if src.Color != "" {
		e.Color = src.Color
	}
	mergeNumber(&e.Size, src.Size)
	mergeNumber(&e.Opacity, src.Opacity)
	mergeNumber(&e.X, src.X)
	mergeNumber(&e.Y, src.Y)
	mergeNumber(&e.X2, src.X2)
	mergeNumber(&e.Y2, src.Y2)
	mergeNumber(&e.DeltaX, src.DeltaX)
	mergeNumber(&e.DeltaY, src.DeltaY)
	if src.Children != nil {
		e.Children = make([]*Element, len(src.Children))
		for i, child := range src.Children {
			e.Children[i] = child.Clone()
		}
	}
	for k, v := range src.Extra {
		if e.Extra == nil {
			e.Extra = make(map[string]json.RawMessage)
		}
		e.Extra[k] = v
	}
}

func mergeNumber(dst **Number, src *Number) {
	if src != nil {
		*dst = cloneNumber(src)
	}
}
