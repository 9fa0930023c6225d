// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditsource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// strictJSONDecoder decodes a sequence of JSON values, rejecting any
// object key that is repeated or that does not exactly match a field's
// json tag. encoding/json alone matches keys case-insensitively and
// lets the last of a repeated key win.
type strictJSONDecoder struct {
	values *json.Decoder
}

// Decode reads the next value into value. Returns io.EOF when the
// input ends cleanly between values.
func (strict *strictJSONDecoder) Decode(value any) error {
	var raw json.RawMessage
	if err := strict.values.Decode(&raw); err != nil {
		return err
	}
	if err := checkFieldNames(raw, reflect.TypeOf(value)); err != nil {
		return err
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	// Keep numbers in opaque bodies exact (resourceVersions, large
	// integers) instead of rounding through float64.
	decoder.UseNumber()
	return decoder.Decode(value)
}

// checkFieldNames walks one JSON value alongside the Go type it
// decodes into. Objects decoding into structs may only use the exact
// tag names; every object, including maps and opaque bodies, must not
// repeat a key.
func checkFieldNames(data []byte, target reflect.Type) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return walkValue(decoder, target, "")
}

func walkValue(decoder *json.Decoder, target reflect.Type, path string) error {
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	delim, ok := token.(json.Delim)
	if !ok {
		return nil
	}
	target = elementType(target)

	switch delim {
	case '{':
		return walkObject(decoder, target, path)
	case '[':
		var element reflect.Type
		if target != nil && (target.Kind() == reflect.Slice || target.Kind() == reflect.Array) {
			element = target.Elem()
		}
		for decoder.More() {
			if err := walkValue(decoder, element, path+"[]"); err != nil {
				return err
			}
		}
		_, err := decoder.Token()
		return err
	}
	return nil
}

func walkObject(decoder *json.Decoder, target reflect.Type, path string) error {
	var fields map[string]reflect.Type
	var element reflect.Type
	if target != nil {
		switch target.Kind() {
		case reflect.Struct:
			fields = jsonFields(target)
		case reflect.Map:
			element = target.Elem()
		}
	}

	seen := make(map[string]struct{})
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		name, _ := token.(string)
		if _, repeated := seen[name]; repeated {
			return fmt.Errorf("json: repeated field %q in %s", name, describePath(path))
		}
		seen[name] = struct{}{}

		fieldType := element
		if fields != nil {
			var known bool
			if fieldType, known = fields[name]; !known {
				return fmt.Errorf("json: unknown field %q in %s", name, describePath(path))
			}
		}
		if err := walkValue(decoder, fieldType, path+"."+name); err != nil {
			return err
		}
	}
	_, err := decoder.Token()
	return err
}

// elementType strips pointers. Interface types (opaque bodies) become
// nil, which checks only for repeated keys below that point.
func elementType(target reflect.Type) reflect.Type {
	for target != nil && target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	if target != nil && target.Kind() == reflect.Interface {
		return nil
	}
	return target
}

func describePath(path string) string {
	if path == "" {
		return "the record"
	}
	return strings.TrimPrefix(path, ".")
}

// fieldCache maps a struct type to its exact JSON field names.
var fieldCache sync.Map

func jsonFields(structType reflect.Type) map[string]reflect.Type {
	if cached, ok := fieldCache.Load(structType); ok {
		return cached.(map[string]reflect.Type)
	}
	fields := make(map[string]reflect.Type, structType.NumField())
	for index := range structType.NumField() {
		field := structType.Field(index)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		fields[name] = field.Type
	}
	fieldCache.Store(structType, fields)
	return fields
}
