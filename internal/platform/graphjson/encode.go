// Package graphjson encodes and decodes object graphs that may contain
// cycles or shared references. Each pointer-to-struct is written in full on
// its first occurrence with a "$id" member; later occurrences are written as
// {"$ref": "<id>"}. The format matches the reference-preservation convention
// used by .NET JSON serializers, so existing trackable clients can exchange
// graphs with this service.
package graphjson

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	idKey     = "$id"
	refKey    = "$ref"
	valuesKey = "$values"
)

var (
	marshalerType     = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	fieldCache        sync.Map // reflect.Type -> []fieldInfo
)

type ptrKey struct {
	typ reflect.Type
	ptr uintptr
}

type encoder struct {
	buf    bytes.Buffer
	ids    map[ptrKey]string
	nextID int
}

// Marshal returns the reference-preserving JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	e := &encoder{ids: make(map[ptrKey]string)}
	if err := e.encode(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

func (e *encoder) encode(v reflect.Value) error {
	if !v.IsValid() {
		e.buf.WriteString("null")
		return nil
	}
	if isLeaf(v.Type()) {
		return e.encodeLeaf(v)
	}
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if v.Elem().Kind() == reflect.Struct {
			return e.encodeObject(v)
		}
		return e.encode(v.Elem())
	case reflect.Interface:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		return e.encode(v.Elem())
	case reflect.Struct:
		e.buf.WriteByte('{')
		if _, err := e.encodeFields(v, false); err != nil {
			return err
		}
		e.buf.WriteByte('}')
		return nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return e.encodeLeaf(v)
		}
		return e.encodeArray(v)
	case reflect.Array:
		return e.encodeArray(v)
	case reflect.Map:
		return e.encodeMap(v)
	default:
		return e.encodeLeaf(v)
	}
}

func (e *encoder) encodeObject(v reflect.Value) error {
	key := ptrKey{typ: v.Type(), ptr: v.Pointer()}
	if id, ok := e.ids[key]; ok {
		e.buf.WriteString(`{"` + refKey + `":`)
		e.buf.WriteString(strconv.Quote(id))
		e.buf.WriteByte('}')
		return nil
	}
	e.nextID++
	id := strconv.Itoa(e.nextID)
	e.ids[key] = id

	e.buf.WriteString(`{"` + idKey + `":`)
	e.buf.WriteString(strconv.Quote(id))
	if _, err := e.encodeFields(v.Elem(), true); err != nil {
		return err
	}
	e.buf.WriteByte('}')
	return nil
}

// encodeFields writes the members of struct v. wrote reports whether a
// member was already written, so separators are placed correctly.
func (e *encoder) encodeFields(v reflect.Value, wrote bool) (bool, error) {
	for _, f := range cachedFields(v.Type()) {
		fv := v.FieldByIndex(f.index)
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		if wrote {
			e.buf.WriteByte(',')
		}
		wrote = true
		e.buf.WriteString(strconv.Quote(f.name))
		e.buf.WriteByte(':')
		if err := e.encode(fv); err != nil {
			return wrote, fmt.Errorf("%s.%s: %w", v.Type().Name(), f.name, err)
		}
	}
	return wrote, nil
}

func (e *encoder) encodeArray(v reflect.Value) error {
	e.buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(v.Index(i)); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) encodeMap(v reflect.Value) error {
	if v.IsNil() {
		e.buf.WriteString("null")
		return nil
	}
	if v.Type().Key().Kind() != reflect.String {
		return e.encodeLeaf(v)
	}
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	e.buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.buf.WriteString(strconv.Quote(k.String()))
		e.buf.WriteByte(':')
		if err := e.encode(v.MapIndex(k)); err != nil {
			return err
		}
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) encodeLeaf(v reflect.Value) error {
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return err
	}
	e.buf.Write(raw)
	return nil
}

// isLeaf reports whether values of t are encoded by encoding/json as-is:
// types with their own (text) marshaling, and non-composite kinds.
func isLeaf(t reflect.Type) bool {
	if t.Implements(marshalerType) || t.Implements(textMarshalerType) {
		return true
	}
	if t.Kind() != reflect.Ptr && (reflect.PointerTo(t).Implements(marshalerType) || reflect.PointerTo(t).Implements(textMarshalerType)) {
		return true
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return false
	}
	return true
}

type fieldInfo struct {
	name      string
	index     []int
	omitEmpty bool
}

// cachedFields flattens the exported fields of t the way encoding/json does
// for untagged embedded structs.
func cachedFields(t reflect.Type) []fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}
	fields := collectFields(t, nil)
	fieldCache.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, prefix []int) []fieldInfo {
	var out []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		index := append(append([]int(nil), prefix...), i)
		if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct {
			out = append(out, collectFields(sf.Type, index)...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		out = append(out, fieldInfo{
			name:      name,
			index:     index,
			omitEmpty: strings.Contains(opts, "omitempty"),
		})
	}
	return out
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}
