package tracking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrNotEntity       = errors.New("not a struct entity")
	ErrTypeMismatch    = errors.New("entity types differ")
)

var (
	trackableType = reflect.TypeOf((*Trackable)(nil)).Elem()
	propertyCache sync.Map // reflect.Type -> []propertyField
)

type propertyField struct {
	name  string
	index int
}

// PropertyNames lists the declared persisted scalar properties of an entity:
// exported, non-embedded fields that are not navigation properties.
func PropertyNames(entity any) []string {
	t, err := structType(entity)
	if err != nil {
		return nil
	}
	fields := propertiesOf(t)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.name
	}
	return out
}

// CanonicalProperty resolves name against the entity's declared properties,
// ignoring case, and returns the declared spelling.
func CanonicalProperty(entity any, name string) (string, bool) {
	t, err := structType(entity)
	if err != nil {
		return "", false
	}
	f, ok := lookupProperty(propertiesOf(t), name)
	return f.name, ok
}

// ValidateModifiedProperties checks that every listed property is declared
// on the entity and rewrites the list to declared spellings without
// duplicates. Entities that are not Modified are not checked.
func ValidateModifiedProperties(entity Trackable) error {
	info := entity.TrackingInfo()
	if info.TrackingState != Modified || len(info.ModifiedProperties) == 0 {
		return nil
	}
	t, err := structType(entity)
	if err != nil {
		return err
	}
	fields := propertiesOf(t)
	canonical := make([]string, 0, len(info.ModifiedProperties))
	var unknown []string
	for _, name := range info.ModifiedProperties {
		f, ok := lookupProperty(fields, name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if !containsFold(canonical, f.name) {
			canonical = append(canonical, f.name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w on %s: %s", ErrUnknownProperty, t.Name(), strings.Join(unknown, ", "))
	}
	info.ModifiedProperties = canonical
	return nil
}

// Diff returns the properties whose values differ between two instances of
// the same entity type, in declaration order.
func Diff(before, after any) ([]string, error) {
	bt, err := structType(before)
	if err != nil {
		return nil, err
	}
	at, err := structType(after)
	if err != nil {
		return nil, err
	}
	if bt != at {
		return nil, fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, bt.Name(), at.Name())
	}
	bv, av := structValue(before), structValue(after)
	var changed []string
	for _, f := range propertiesOf(bt) {
		if !valuesEqual(bv.Field(f.index), av.Field(f.index)) {
			changed = append(changed, f.name)
		}
	}
	return changed, nil
}

// ApplyProperties copies the named properties from src onto dst. dst must be
// a pointer to the same struct type as src.
func ApplyProperties(dst, src any, props []string) error {
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return fmt.Errorf("%w: destination must be a non-nil pointer", ErrNotEntity)
	}
	dt, err := structType(dst)
	if err != nil {
		return err
	}
	st, err := structType(src)
	if err != nil {
		return err
	}
	if dt != st {
		return fmt.Errorf("%w: %s vs %s", ErrTypeMismatch, dt.Name(), st.Name())
	}
	fields := propertiesOf(dt)
	de, se := dv.Elem(), structValue(src)
	for _, name := range props {
		f, ok := lookupProperty(fields, name)
		if !ok {
			return fmt.Errorf("%w on %s: %s", ErrUnknownProperty, dt.Name(), name)
		}
		de.Field(f.index).Set(cloneValue(se.Field(f.index)))
	}
	return nil
}

func structType(entity any) (reflect.Type, error) {
	if entity == nil {
		return nil, ErrNotEntity
	}
	t := reflect.TypeOf(entity)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotEntity, t)
	}
	return t, nil
}

func structValue(entity any) reflect.Value {
	return reflect.Indirect(reflect.ValueOf(entity))
}

func propertiesOf(t reflect.Type) []propertyField {
	if cached, ok := propertyCache.Load(t); ok {
		return cached.([]propertyField)
	}
	fields := make([]propertyField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous || !sf.IsExported() || isNavigation(sf.Type) {
			continue
		}
		fields = append(fields, propertyField{name: sf.Name, index: i})
	}
	propertyCache.Store(t, fields)
	return fields
}

func lookupProperty(fields []propertyField, name string) (propertyField, bool) {
	name = strings.TrimSpace(name)
	for _, f := range fields {
		if strings.EqualFold(f.name, name) {
			return f, true
		}
	}
	return propertyField{}, false
}

// isNavigation reports whether a field type references other entities,
// either as a single pointer or as a collection of pointers.
func isNavigation(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr:
		return t.Elem().Kind() == reflect.Struct && t.Implements(trackableType)
	case reflect.Slice:
		e := t.Elem()
		return e.Kind() == reflect.Ptr && e.Elem().Kind() == reflect.Struct && e.Implements(trackableType)
	}
	return false
}

func valuesEqual(a, b reflect.Value) bool {
	if eq, ok := equalMethod(a, b); ok {
		return eq
	}
	switch a.Kind() {
	case reflect.Ptr:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return valuesEqual(a.Elem(), b.Elem())
	case reflect.Slice:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !valuesEqual(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !a.Type().Field(i).IsExported() {
				return reflect.DeepEqual(a.Interface(), b.Interface())
			}
			if !valuesEqual(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a.Interface(), b.Interface())
	}
}

// equalMethod uses a value-receiver Equal(T) bool method when the type has
// one, so that time.Time and decimal values compare by meaning.
func equalMethod(a, b reflect.Value) (bool, bool) {
	m, ok := a.Type().MethodByName("Equal")
	if !ok {
		return false, false
	}
	mt := m.Type
	if mt.NumIn() != 2 || mt.In(1) != a.Type() || mt.NumOut() != 1 || mt.Out(0).Kind() != reflect.Bool {
		return false, false
	}
	return m.Func.Call([]reflect.Value{a, b})[0].Bool(), true
}

// cloneValue copies pointers and byte slices so the destination does not
// alias the source.
func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		cp := reflect.New(v.Type().Elem())
		cp.Elem().Set(cloneValue(v.Elem()))
		return cp
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		cp := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(cp, v)
		return cp
	default:
		return v
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
