package mixpanel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// DateTimeLayout is the only custom rendering rule of the encoder: date/time
// values become naive, second precision strings without a zone suffix.
const DateTimeLayout = "2006-01-02T15:04:05"

var (
	timeType       = reflect.TypeFor[time.Time]()
	jsonNumberType = reflect.TypeFor[json.Number]()
)

var errCycle = errors.New("cycle detected")

// EncodingError reports a payload value that has no defined rendering rule.
// It is a programming error on the caller's side and is never swallowed.
type EncodingError struct {
	// Path is the dotted location of the value inside the payload.
	Path string
	// Type is the Go type of the value, or "" when unknown.
	Type string
	// Err is the underlying cause, if any.
	Err error
}

func (e *EncodingError) Error() string {
	msg := "mixpanel: cannot encode value"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Type != "" {
		msg += " of type " + e.Type
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Encode serializes payload to compact JSON. Map keys are sorted, no
// whitespace is emitted outside of strings and HTML characters are left
// unescaped. time.Time values are rendered with DateTimeLayout.
func Encode(payload map[string]any) ([]byte, error) {
	normalized, err := newWalker().normalize(reflect.ValueOf(payload), "")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, &EncodingError{Err: err}
	}

	// json.Encoder always terminates the document with a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// walker tracks the maps, slices and pointers on the current recursion
// path so that a self-referencing payload fails instead of recursing
// forever.
type walker struct {
	active map[visit]struct{}
}

// visit identifies a reference value. Slices sharing a backing array with
// different lengths are distinct values.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

func newWalker() *walker {
	return &walker{active: make(map[visit]struct{})}
}

// enter marks v as being walked. It returns a leave func, or an
// EncodingError when v is already on the recursion path.
func (w *walker) enter(v reflect.Value, path string) (func(), error) {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if _, ok := w.active[key]; ok {
		return nil, &EncodingError{Path: path, Type: v.Type().String(), Err: errCycle}
	}
	w.active[key] = struct{}{}
	return func() { delete(w.active, key) }, nil
}

// normalize walks v and rebuilds it from plain JSON-friendly values so that
// the standard encoder never sees a type we have no rule for.
func (w *walker) normalize(v reflect.Value, path string) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Type() {
	case timeType:
		return v.Interface().(time.Time).Format(DateTimeLayout), nil
	case jsonNumberType:
		return v.Interface().(json.Number), nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return w.normalize(v.Elem(), path)

	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		leave, err := w.enter(v, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		return w.normalize(v.Elem(), path)

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.String:
		return v.String(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &EncodingError{Path: path, Type: v.Type().String(), Err: fmt.Errorf("unsupported float value %v", f)}
		}
		return f, nil

	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		leave, err := w.enter(v, path)
		if err != nil {
			return nil, err
		}
		defer leave()

		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key, ok := mapKey(iter.Key())
			if !ok {
				return nil, &EncodingError{Path: path, Type: v.Type().String(), Err: fmt.Errorf("unsupported map key type %s", iter.Key().Type())}
			}
			val, err := w.normalize(iter.Value(), joinPath(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, nil
		}
		// raw bytes have no rendering rule
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil, &EncodingError{Path: path, Type: v.Type().String()}
		}
		if v.Kind() == reflect.Slice && v.Len() > 0 {
			leave, err := w.enter(v, path)
			if err != nil {
				return nil, err
			}
			defer leave()
		}

		out := make([]any, v.Len())
		for i := range v.Len() {
			val, err := w.normalize(v.Index(i), joinPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	}

	return nil, &EncodingError{Path: path, Type: v.Type().String()}
}

func mapKey(k reflect.Value) (string, bool) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), true
	case reflect.Interface:
		if k.IsNil() {
			return "", false
		}
		return mapKey(k.Elem())
	}
	return "", false
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
