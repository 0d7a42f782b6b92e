package postgres

import (
	"reflect"
	"strings"
	"sync"
)

// structMetadata caches reflection results per struct type so column
// extraction happens once per type, not once per query.
type structMetadata struct {
	columns []string
	fields  []fieldInfo
}

type fieldInfo struct {
	column string
	index  []int
}

var metadataCache sync.Map // reflect.Type -> *structMetadata

func getStructMetadata(t reflect.Type) *structMetadata {
	if cached, ok := metadataCache.Load(t); ok {
		return cached.(*structMetadata)
	}

	meta := &structMetadata{}
	collectFields(t, nil, meta)
	metadataCache.Store(t, meta)
	return meta
}

func collectFields(t reflect.Type, parent []int, meta *structMetadata) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		index := append(append([]int{}, parent...), i)

		// Recurse into embedded structs so base entity columns are
		// picked up alongside the concrete type's own.
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, index, meta)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		column := strings.Split(tag, ",")[0]

		meta.columns = append(meta.columns, column)
		meta.fields = append(meta.fields, fieldInfo{column: column, index: index})
	}
}

// ExtractDBColumns returns the db-tagged column names of T in declaration
// order, embedded structs included.
func ExtractDBColumns[T any]() []string {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	meta := getStructMetadata(t)
	out := make([]string, len(meta.columns))
	copy(out, meta.columns)
	return out
}

// StructToMap converts a db-tagged struct into a column -> value map
// suitable for squirrel insert and update builders.
func StructToMap(entity any) map[string]any {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	meta := getStructMetadata(v.Type())

	result := make(map[string]any, len(meta.fields))
	for _, f := range meta.fields {
		result[f.column] = v.FieldByIndex(f.index).Interface()
	}
	return result
}
