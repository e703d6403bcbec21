package graphjson

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var (
	ErrUnresolvedReference = errors.New("graphjson: unresolved $ref")
	ErrDuplicateID         = errors.New("graphjson: duplicate $id")
	ErrReferenceType       = errors.New("graphjson: $ref points to an object of another type")
	ErrInvalidTarget       = errors.New("graphjson: target must be a non-nil pointer")
)

// Initializer is implemented by types that need defaults once decoded, such
// as empty collections or generated identifiers. InitDefaults runs after all
// members present in the document have been assigned.
type Initializer interface {
	InitDefaults()
}

var (
	unmarshalerType     = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	initializerType     = reflect.TypeOf((*Initializer)(nil)).Elem()
	lookupCache         sync.Map // reflect.Type -> map[string]fieldInfo
)

type fixup struct {
	dst reflect.Value
	id  string
}

// mapEntry is a map value decoded through an addressable temporary. It is
// stored again once references are resolved, since the map holds a copy.
type mapEntry struct {
	m, key, val reflect.Value
}

type decoder struct {
	objects    map[string]reflect.Value
	fixups     []fixup
	mapEntries []mapEntry
	initOrder  []reflect.Value
}

// Unmarshal decodes a reference-preserving document into v, rebuilding
// shared and cyclic references so that every "$ref" resolves to the same
// pointer as the object carrying the matching "$id". References may appear
// before the object they point to. Collections written as
// {"$id":"n","$values":[...]} may be referenced the same way.
func Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return ErrInvalidTarget
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var node any
	if err := dec.Decode(&node); err != nil {
		return err
	}

	d := &decoder{objects: make(map[string]reflect.Value)}
	if m, ok := node.(map[string]any); ok && rv.Elem().Kind() == reflect.Struct && !isDecodeLeaf(rv.Elem().Type()) {
		if err := d.decodeObject(rv, m); err != nil {
			return err
		}
	} else if err := d.decode(rv.Elem(), node); err != nil {
		return err
	}
	if err := d.resolve(); err != nil {
		return err
	}
	for _, p := range d.initOrder {
		p.Interface().(Initializer).InitDefaults()
	}
	return nil
}

func (d *decoder) resolve() error {
	for _, f := range d.fixups {
		obj, ok := d.objects[f.id]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnresolvedReference, f.id)
		}
		if err := assignRef(f.dst, obj); err != nil {
			return err
		}
	}
	for _, e := range d.mapEntries {
		e.m.SetMapIndex(e.key, e.val)
	}
	return nil
}

// refer points dst at the object registered under id, or queues it until
// the whole document has been read.
func (d *decoder) refer(dst reflect.Value, id string) error {
	if obj, found := d.objects[id]; found {
		return assignRef(dst, obj)
	}
	d.fixups = append(d.fixups, fixup{dst: dst, id: id})
	return nil
}

func (d *decoder) register(id string, v reflect.Value) error {
	if _, dup := d.objects[id]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	d.objects[id] = v
	return nil
}

func (d *decoder) decode(dst reflect.Value, node any) error {
	t := dst.Type()
	if node == nil {
		return setNull(dst)
	}
	if isDecodeLeaf(t) {
		return decodeLeaf(dst, node)
	}
	switch t.Kind() {
	case reflect.Ptr:
		if t.Elem().Kind() == reflect.Struct && !isDecodeLeaf(t.Elem()) {
			m, ok := node.(map[string]any)
			if !ok {
				return fmt.Errorf("graphjson: expected object for %s", t)
			}
			if id, ok := refOf(m); ok {
				return d.refer(dst, id)
			}
			p := reflect.New(t.Elem())
			if err := d.decodeObject(p, m); err != nil {
				return err
			}
			dst.Set(p)
			return nil
		}
		p := reflect.New(t.Elem())
		if err := d.decode(p.Elem(), node); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	case reflect.Struct:
		m, ok := node.(map[string]any)
		if !ok {
			return fmt.Errorf("graphjson: expected object for %s", t)
		}
		return d.decodeFields(dst, m)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return decodeLeaf(dst, node)
		}
		m, wrapped := node.(map[string]any)
		if wrapped {
			if id, ok := refOf(m); ok {
				return d.refer(dst, id)
			}
		}
		items, err := arrayOf(node)
		if err != nil {
			return fmt.Errorf("%w for %s", err, t)
		}
		s := reflect.MakeSlice(t, len(items), len(items))
		dst.Set(s)
		if id, ok := stringMember(m, idKey); wrapped && ok {
			if err := d.register(id, dst); err != nil {
				return err
			}
		}
		for i, item := range items {
			if err := d.decode(dst.Index(i), item); err != nil {
				return err
			}
		}
		return nil
	case reflect.Array:
		items, err := arrayOf(node)
		if err != nil {
			return fmt.Errorf("%w for %s", err, t)
		}
		for i := 0; i < dst.Len() && i < len(items); i++ {
			if err := d.decode(dst.Index(i), items[i]); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		m, ok := node.(map[string]any)
		if !ok || t.Key().Kind() != reflect.String {
			return decodeLeaf(dst, node)
		}
		out := reflect.MakeMapWithSize(t, len(m))
		for k, raw := range m {
			ev := reflect.New(t.Elem()).Elem()
			if err := d.decode(ev, raw); err != nil {
				return err
			}
			key := reflect.ValueOf(k).Convert(t.Key())
			out.SetMapIndex(key, ev)
			d.mapEntries = append(d.mapEntries, mapEntry{m: out, key: key, val: ev})
		}
		dst.Set(out)
		return nil
	case reflect.Interface:
		if t.NumMethod() == 0 {
			dst.Set(reflect.ValueOf(node))
			return nil
		}
		return fmt.Errorf("graphjson: cannot decode into interface %s", t)
	default:
		return decodeLeaf(dst, node)
	}
}

// decodeObject fills the struct behind ptr and registers its "$id".
func (d *decoder) decodeObject(ptr reflect.Value, m map[string]any) error {
	if id, ok := stringMember(m, idKey); ok {
		if err := d.register(id, ptr); err != nil {
			return err
		}
	}
	if err := d.decodeFields(ptr.Elem(), m); err != nil {
		return err
	}
	if ptr.Type().Implements(initializerType) {
		d.initOrder = append(d.initOrder, ptr)
	}
	return nil
}

func (d *decoder) decodeFields(dst reflect.Value, m map[string]any) error {
	lookup := fieldLookup(dst.Type())
	for key, raw := range m {
		if strings.HasPrefix(key, "$") {
			continue
		}
		f, ok := lookup[strings.ToLower(key)]
		if !ok {
			continue
		}
		fv := fieldByIndexAlloc(dst, f.index)
		if err := d.decode(fv, raw); err != nil {
			return fmt.Errorf("%s.%s: %w", dst.Type().Name(), f.name, err)
		}
	}
	return nil
}

func fieldLookup(t reflect.Type) map[string]fieldInfo {
	if cached, ok := lookupCache.Load(t); ok {
		return cached.(map[string]fieldInfo)
	}
	fields := cachedFields(t)
	out := make(map[string]fieldInfo, len(fields)*2)
	for _, f := range fields {
		out[strings.ToLower(f.name)] = f
	}
	// Go field names are accepted too, unless they collide with a json name.
	for _, f := range fields {
		goName := strings.ToLower(t.FieldByIndex(f.index).Name)
		if _, taken := out[goName]; !taken {
			out[goName] = f
		}
	}
	lookupCache.Store(t, out)
	return out
}

func fieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

// setNull applies a JSON null. Collections become empty rather than nil so
// that callers never have to check them; byte slices stay nil.
func setNull(dst reflect.Value) error {
	t := dst.Type()
	switch t.Kind() {
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			dst.Set(reflect.Zero(t))
			return nil
		}
		dst.Set(reflect.MakeSlice(t, 0, 0))
	case reflect.Ptr, reflect.Interface:
		dst.Set(reflect.Zero(t))
	case reflect.Map:
		dst.Set(reflect.MakeMap(t))
	default:
		if isDecodeLeaf(t) {
			return decodeLeaf(dst, nil)
		}
	}
	return nil
}

func decodeLeaf(dst reflect.Value, node any) error {
	raw, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst.Addr().Interface())
}

func assignRef(dst, obj reflect.Value) error {
	if !obj.Type().AssignableTo(dst.Type()) {
		return fmt.Errorf("%w: %s into %s", ErrReferenceType, obj.Type(), dst.Type())
	}
	dst.Set(obj)
	return nil
}

func refOf(m map[string]any) (string, bool) {
	return stringMember(m, refKey)
}

func stringMember(m map[string]any, key string) (string, bool) {
	raw, ok := m[key]
	if !ok {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

// arrayOf accepts a plain array or a {"$values": [...]} wrapper.
func arrayOf(node any) ([]any, error) {
	switch v := node.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if vals, ok := v[valuesKey].([]any); ok {
			return vals, nil
		}
		if raw, ok := v[valuesKey]; ok && raw == nil {
			return nil, nil
		}
	}
	return nil, errors.New("graphjson: expected array")
}

// isDecodeLeaf reports whether encoding/json should decode t directly.
func isDecodeLeaf(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	if pt.Implements(unmarshalerType) || pt.Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return false
	}
	return true
}
