package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// TableFormatter formats data as aligned columns.
//
// Supported shapes:
//   - *Table or Table: rendered as is
//   - struct: FIELD/VALUE rows, names from the json tag
//   - map: KEY/VALUE rows sorted by key
//   - slice of structs or objects: one row per element
//   - scalars: a single VALUE column
type TableFormatter struct {
	NoHeaders bool
}

// Format formats data as a table.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	data, err := decodeRaw(data)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	switch t := data.(type) {
	case *Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	case Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	}

	return toTable(reflect.ValueOf(data)).RenderWithOptions(w, f.NoHeaders)
}

func toTable(v reflect.Value) *Table {
	v = indirect(v)
	if !v.IsValid() {
		return &Table{}
	}

	switch v.Kind() {
	case reflect.Struct:
		if v.Type() == timeType {
			return scalarTable(v)
		}
		t := &Table{Headers: []string{"FIELD", "VALUE"}}
		for _, fld := range structFields(v.Type()) {
			t.AddRow(fld.name, formatValue(v.Field(fld.index)))
		}
		return t
	case reflect.Map:
		t := &Table{Headers: []string{"KEY", "VALUE"}}
		for _, k := range sortedKeys(v) {
			t.AddRow(k.String(), formatValue(v.MapIndex(k)))
		}
		return t
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return scalarTable(v)
		}
		return sliceToTable(v)
	default:
		return scalarTable(v)
	}
}

func scalarTable(v reflect.Value) *Table {
	t := &Table{Headers: []string{"VALUE"}}
	t.AddRow(formatValue(v))
	return t
}

// sliceToTable uses the first element to pick columns. Objects decoded
// from JSON contribute the union of their keys, sorted.
func sliceToTable(v reflect.Value) *Table {
	if v.Len() == 0 {
		return &Table{}
	}

	first := indirect(v.Index(0))
	switch {
	case first.Kind() == reflect.Struct && first.Type() != timeType:
		fields := structFields(first.Type())
		t := &Table{}
		for _, fld := range fields {
			t.Headers = append(t.Headers, strings.ToUpper(toSnakeCase(fld.name)))
		}
		for i := 0; i < v.Len(); i++ {
			elem := indirect(v.Index(i))
			row := make([]string, 0, len(fields))
			for _, fld := range fields {
				if elem.IsValid() {
					row = append(row, formatValue(elem.Field(fld.index)))
				} else {
					row = append(row, "-")
				}
			}
			t.Rows = append(t.Rows, row)
		}
		return t

	case first.Kind() == reflect.Map:
		keySet := make(map[string]struct{})
		for i := 0; i < v.Len(); i++ {
			if elem := indirect(v.Index(i)); elem.Kind() == reflect.Map {
				for _, k := range elem.MapKeys() {
					keySet[fmt.Sprint(k.Interface())] = struct{}{}
				}
			}
		}
		keys := make([]string, 0, len(keySet))
		for k := range keySet {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		t := &Table{}
		for _, k := range keys {
			t.Headers = append(t.Headers, strings.ToUpper(toSnakeCase(k)))
		}
		for i := 0; i < v.Len(); i++ {
			elem := indirect(v.Index(i))
			row := make([]string, 0, len(keys))
			for _, k := range keys {
				cell := "-"
				if elem.Kind() == reflect.Map {
					cell = formatValue(elem.MapIndex(reflect.ValueOf(k)))
				}
				row = append(row, cell)
			}
			t.Rows = append(t.Rows, row)
		}
		return t

	default:
		t := &Table{Headers: []string{"VALUE"}}
		for i := 0; i < v.Len(); i++ {
			t.AddRow(formatValue(v.Index(i)))
		}
		return t
	}
}

type structField struct {
	name  string
	index int
}

// structFields lists exported fields, named by their json tag. Fields
// tagged json:"-" or table:"-" are skipped.
func structFields(t reflect.Type) []structField {
	var fields []structField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("table") == "-" {
			continue
		}
		name := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields = append(fields, structField{name: name, index: i})
	}
	return fields
}

func sortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// formatValue formats a single cell. Empty values print as "-" and
// nested structures as compact JSON.
func formatValue(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return "-"
	}

	switch v.Type() {
	case timeType:
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return "-"
		}
		return t.Format(time.RFC3339)
	case durationType:
		return v.Interface().(time.Duration).String()
	}

	switch v.Kind() {
	case reflect.String:
		if v.String() == "" {
			return "-"
		}
		return v.String()
	case reflect.Bool:
		return fmt.Sprintf("%t", v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", v.Uint())
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%g", v.Float())
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		if (v.Kind() == reflect.Slice || v.Kind() == reflect.Map) && v.Len() == 0 {
			return "-"
		}
		b, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// toSnakeCase converts camelCase to snake_case.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table, optionally without the header row.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// SetHeaders sets the table headers.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}
