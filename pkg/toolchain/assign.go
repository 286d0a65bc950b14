package toolchain

import (
	"fmt"
	"reflect"
	"strings"
)

// assign stores src into dst, a settable value of a type declared by generated
// code. Host types never share identity with module types, so values are
// copied structurally.
func assign(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	return assignValue(dst, reflect.ValueOf(src))
}

func assignValue(dst, src reflect.Value) error {
	for src.Kind() == reflect.Interface || src.Kind() == reflect.Pointer {
		if src.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		src = src.Elem()
	}
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		return assignStruct(dst, src)
	case reflect.Slice:
		if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
			return mismatch(dst, src)
		}
		n := src.Len()
		dst.Set(reflect.MakeSlice(dst.Type(), n, n))
		return assignElems(dst, src)
	case reflect.Array:
		if (src.Kind() != reflect.Slice && src.Kind() != reflect.Array) || src.Len() != dst.Len() {
			return mismatch(dst, src)
		}
		return assignElems(dst, src)
	case reflect.Complex64, reflect.Complex128:
		switch {
		case isComplex(src.Kind()):
			dst.SetComplex(src.Complex())
		case isNumber(src.Kind()):
			dst.SetComplex(complex(src.Convert(reflect.TypeOf(float64(0))).Float(), 0))
		default:
			return mismatch(dst, src)
		}
		return nil
	}
	if scalarClass(dst.Kind()) != 0 && scalarClass(dst.Kind()) == scalarClass(src.Kind()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return mismatch(dst, src)
}

func assignElems(dst, src reflect.Value) error {
	for i := 0; i < src.Len(); i++ {
		if err := assignValue(dst.Index(i), src.Index(i)); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func assignStruct(dst, src reflect.Value) error {
	t := dst.Type()
	switch src.Kind() {
	case reflect.Struct:
		if src.NumField() != dst.NumField() {
			return fmt.Errorf("%s has %d fields, %s has %d", src.Type(), src.NumField(), t, dst.NumField())
		}
		for i := 0; i < dst.NumField(); i++ {
			if err := setField(dst, i, src.Field(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array:
		if src.Len() != dst.NumField() {
			return fmt.Errorf("%s needs %d elements, got %d", t, dst.NumField(), src.Len())
		}
		for i := 0; i < dst.NumField(); i++ {
			if err := setField(dst, i, src.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if src.Type().Key().Kind() != reflect.String {
			return mismatch(dst, src)
		}
		for i := 0; i < dst.NumField(); i++ {
			name := t.Field(i).Name
			iter := src.MapRange()
			for iter.Next() {
				if strings.EqualFold(iter.Key().String(), name) {
					if err := setField(dst, i, iter.Value()); err != nil {
						return err
					}
					break
				}
			}
		}
		return nil
	}
	return mismatch(dst, src)
}

func setField(dst reflect.Value, i int, src reflect.Value) error {
	f := dst.Field(i)
	if !f.CanSet() {
		return fmt.Errorf("field %s of %s is not settable", dst.Type().Field(i).Name, dst.Type())
	}
	if err := assignValue(f, src); err != nil {
		return fmt.Errorf("%s: %w", dst.Type().Field(i).Name, err)
	}
	return nil
}

func isComplex(k reflect.Kind) bool { return k == reflect.Complex64 || k == reflect.Complex128 }

func isNumber(k reflect.Kind) bool { return scalarClass(k) == 2 }

// scalarClass groups kinds whose values convert without changing meaning.
func scalarClass(k reflect.Kind) int {
	switch k {
	case reflect.Bool:
		return 1
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 2
	case reflect.String:
		return 3
	}
	return 0
}

func mismatch(dst, src reflect.Value) error {
	return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
}
