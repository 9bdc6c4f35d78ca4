package model

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Limits applied to context maps.
const (
	MaxContextEntries = 64
	MaxContextDepth   = 4
)

// ErrInvalidContext is returned for context values outside the permitted kinds or limits.
var ErrInvalidContext = errors.New("invalid context")

// Kind enumerates the permitted context value kinds.
type Kind int

const (
	KindString Kind = iota + 1
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is a context value. The zero Value is invalid.
// Values are immutable once constructed.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

// List builds a list value from vs.
func List(vs ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), vs...)}
}

// Map builds a map value from m.
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() Kind { return v.kind }

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v canonically. Map keys are sorted.
func (v Value) String() string {
	var sb strings.Builder
	v.render(&sb)
	return sb.String()
}

func (v Value) render(sb *strings.Builder) {
	switch v.kind {
	case KindString:
		sb.WriteString(v.str)
	case KindNumber:
		sb.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindList:
		sb.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.render(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, k := range sortedKeys(v.m) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			v.m[k].render(sb)
		}
		sb.WriteByte('}')
	}
}

// Interface converts v back to plain Go values.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Interface()
		}
		return out
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == 0 {
		return nil, errors.Wrap(ErrInvalidContext, "marshal zero value")
	}
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decode context value")
	}
	parsed, err := valueFromAny(raw, 1)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueFromAny converts a plain Go value into a Value, rejecting unsupported kinds.
func ValueFromAny(x any) (Value, error) {
	return valueFromAny(x, 1)
}

func valueFromAny(x any, depth int) (Value, error) {
	switch t := x.(type) {
	case Value:
		if t.kind == 0 {
			return Value{}, errors.Wrap(ErrInvalidContext, "zero value")
		}
		return t, t.checkLimits(depth)
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return number(t)
	case float32:
		return number(float64(t))
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, errors.Wrapf(ErrInvalidContext, "number %q", t.String())
		}
		return number(f)
	case []string:
		vs := make([]any, len(t))
		for i, s := range t {
			vs[i] = s
		}
		return valueFromAny(vs, depth)
	case []any:
		if depth > MaxContextDepth {
			return Value{}, errors.Wrapf(ErrInvalidContext, "nesting deeper than %d", MaxContextDepth)
		}
		if len(t) > MaxContextEntries {
			return Value{}, errors.Wrapf(ErrInvalidContext, "list longer than %d", MaxContextEntries)
		}
		out := make([]Value, len(t))
		for i, e := range t {
			v, err := valueFromAny(e, depth+1)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return Value{kind: KindList, list: out}, nil
	case map[string]any:
		if depth > MaxContextDepth {
			return Value{}, errors.Wrapf(ErrInvalidContext, "nesting deeper than %d", MaxContextDepth)
		}
		if len(t) > MaxContextEntries {
			return Value{}, errors.Wrapf(ErrInvalidContext, "map larger than %d", MaxContextEntries)
		}
		out := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := valueFromAny(e, depth+1)
			if err != nil {
				return Value{}, errors.Wrapf(err, "key %q", k)
			}
			out[k] = v
		}
		return Value{kind: KindMap, m: out}, nil
	case nil:
		return Value{}, errors.Wrap(ErrInvalidContext, "null value")
	default:
		return Value{}, errors.Wrapf(ErrInvalidContext, "unsupported type %T", x)
	}
}

func number(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, errors.Wrap(ErrInvalidContext, "non-finite number")
	}
	return Number(f), nil
}

func (v Value) checkLimits(depth int) error {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return errors.Wrap(ErrInvalidContext, "non-finite number")
		}
	case KindList:
		if depth > MaxContextDepth {
			return errors.Wrapf(ErrInvalidContext, "nesting deeper than %d", MaxContextDepth)
		}
		if len(v.list) > MaxContextEntries {
			return errors.Wrapf(ErrInvalidContext, "list longer than %d", MaxContextEntries)
		}
		for _, e := range v.list {
			if err := e.checkLimits(depth + 1); err != nil {
				return err
			}
		}
	case KindMap:
		if depth > MaxContextDepth {
			return errors.Wrapf(ErrInvalidContext, "nesting deeper than %d", MaxContextDepth)
		}
		if len(v.m) > MaxContextEntries {
			return errors.Wrapf(ErrInvalidContext, "map larger than %d", MaxContextEntries)
		}
		for _, e := range v.m {
			if err := e.checkLimits(depth + 1); err != nil {
				return err
			}
		}
	case 0:
		return errors.Wrap(ErrInvalidContext, "zero value")
	}
	return nil
}

// Context maps string keys to context values. Key order is irrelevant.
type Context map[string]Value

// ContextFromAny converts an untyped map into a Context.
func ContextFromAny(m map[string]any) (Context, error) {
	if len(m) > MaxContextEntries {
		return nil, errors.Wrapf(ErrInvalidContext, "more than %d keys", MaxContextEntries)
	}
	c := make(Context, len(m))
	for k, x := range m {
		v, err := valueFromAny(x, 2)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", k)
		}
		c[k] = v
	}
	return c, nil
}

// ParseContext decodes a JSON object into a Context. Empty input yields an empty Context.
func ParseContext(data string) (Context, error) {
	if strings.TrimSpace(data) == "" {
		return Context{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, errors.Wrapf(ErrInvalidContext, "decode: %v", err)
	}
	return ContextFromAny(raw)
}

// Validate checks every value against the permitted kinds and limits.
func (c Context) Validate() error {
	if len(c) > MaxContextEntries {
		return errors.Wrapf(ErrInvalidContext, "more than %d keys", MaxContextEntries)
	}
	for k, v := range c {
		if err := v.checkLimits(2); err != nil {
			return errors.Wrapf(err, "key %q", k)
		}
	}
	return nil
}

// Clone returns a shallow copy; values are immutable.
func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func (c *Context) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = nil
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(ErrInvalidContext, err.Error())
	}
	parsed, err := ContextFromAny(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
