package openapi

import (
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// TypeMapping is an OpenAPI type/format pair.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean, object, array
	Format string // OpenAPI format: int64, date-time, etc.
}

var timeType = reflect.TypeOf(time.Time{})

// MapGoType maps a Go type to its OpenAPI representation. Named string types
// such as model.KeyStatus map to plain strings.
func MapGoType(t reflect.Type) TypeMapping {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return TypeMapping{"string", "date-time"}
	}
	switch t.Kind() {
	case reflect.Int64, reflect.Uint64:
		return TypeMapping{"integer", "int64"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return TypeMapping{"integer", "int32"}
	case reflect.Float32:
		return TypeMapping{"number", "float"}
	case reflect.Float64:
		return TypeMapping{"number", "double"}
	case reflect.Bool:
		return TypeMapping{"boolean", ""}
	case reflect.String:
		return TypeMapping{"string", ""}
	case reflect.Slice, reflect.Array:
		return TypeMapping{"array", ""}
	default:
		return TypeMapping{"object", ""}
	}
}

// structSchema builds an object schema from v's exported, JSON-visible
// fields. Fields tagged json:"-" are skipped and omitempty fields are left
// out of the required list.
func structSchema(v interface{}) *openapi3.SchemaRef {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	props := openapi3.Schemas{}
	var required []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		props[name] = &openapi3.SchemaRef{Value: columnTypeSchema(MapGoType(f.Type))}
		if !strings.Contains(opts, "omitempty") {
			required = append(required, name)
		}
	}

	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
			Required:   required,
		},
	}
}

func columnTypeSchema(m TypeMapping) *openapi3.Schema {
	s := &openapi3.Schema{Type: &openapi3.Types{m.Type}}
	if m.Format != "" {
		s.Format = m.Format
	}
	return s
}
