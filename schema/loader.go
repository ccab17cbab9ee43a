package schema

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"
)

// Tabler overrides the derived table name of a model.
type Tabler interface {
	TableName() string
}

// Aliaser overrides the derived alias of a model.
type Aliaser interface {
	Alias() string
}

// inflector snake-cases Go identifiers. Common initialisms are registered
// so that UserID becomes user_id rather than user_i_d.
var inflector = func() *inflect.Ruleset {
	rs := inflect.NewDefaultRuleset()
	for _, acronym := range []string{"UUID", "JSON", "HTTP", "URL", "API", "SQL", "ID"} {
		rs.AddAcronym(acronym)
	}
	return rs
}()

var (
	timeType  = reflect.TypeOf(time.Time{})
	uuidType  = reflect.TypeOf(uuid.UUID{})
	bytesType = reflect.TypeOf([]byte(nil))

	// sql.Null* wrappers and the type they carry.
	nullTypes = map[reflect.Type]reflect.Type{
		reflect.TypeOf(sql.NullString{}):  reflect.TypeOf(""),
		reflect.TypeOf(sql.NullInt64{}):   reflect.TypeOf(int64(0)),
		reflect.TypeOf(sql.NullInt32{}):   reflect.TypeOf(int32(0)),
		reflect.TypeOf(sql.NullInt16{}):   reflect.TypeOf(int16(0)),
		reflect.TypeOf(sql.NullByte{}):    reflect.TypeOf(byte(0)),
		reflect.TypeOf(sql.NullFloat64{}): reflect.TypeOf(float64(0)),
		reflect.TypeOf(sql.NullBool{}):    reflect.TypeOf(false),
		reflect.TypeOf(sql.NullTime{}):    timeType,
	}
)

// Describe reflects a struct value (or pointer to one) into a model
// descriptor. Exported fields become columns in declaration order; the
// column name comes from the `db` tag or the snake-cased field name, and
// `db:"-"` skips a field.
func Describe(v any) (*Model, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, Configf("", "cannot describe nil")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, Configf(t.String(), "model must be a struct, got %s", t.Kind())
	}

	m := &Model{
		name: t.Name(),
		typ:  t,
	}
	proto := reflect.New(t).Interface()
	if tb, ok := proto.(Tabler); ok && tb.TableName() != "" {
		m.table = tb.TableName()
	} else {
		m.table = TableName(t.Name())
	}
	if al, ok := proto.(Aliaser); ok && al.Alias() != "" {
		m.alias = al.Alias()
	} else {
		m.alias = AliasFor(m.table)
	}

	if err := collectColumns(m, t, nil); err != nil {
		return nil, err
	}
	if err := m.index(); err != nil {
		return nil, err
	}
	return m, nil
}

func collectColumns(m *Model, t reflect.Type, parent []int) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		tag, hasTag := field.Tag.Lookup("db")
		if tag == "-" {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct && !hasTag && !isScalarStruct(field.Type) {
			if err := collectColumns(m, field.Type, index); err != nil {
				return err
			}
			continue
		}
		if !field.IsExported() {
			continue
		}

		col, err := parseDBTag(field.Name, tag)
		if err != nil {
			return fmt.Errorf("error parsing tag on %s.%s: %w", m.name, field.Name, err)
		}
		col.Type, col.Kind, col.Nullable, err = classify(field.Type)
		if err != nil {
			return &ConfigurationError{Model: m.name, Column: col.Name, Reason: err.Error()}
		}
		col.field = field.Name
		col.index = index
		m.columns = append(m.columns, col)
	}
	return nil
}

// parseDBTag reads `db:"name,default:value"`.
func parseDBTag(fieldName, tag string) (Column, error) {
	col := Column{Name: inflector.Underscore(fieldName)}
	if tag == "" {
		return col, nil
	}
	parts := strings.Split(tag, ",")
	if name := strings.TrimSpace(parts[0]); name != "" {
		col.Name = name
	}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case strings.HasPrefix(part, "default:"):
			val := strings.TrimPrefix(part, "default:")
			col.Default = &val
		default:
			return col, fmt.Errorf("unknown db tag option %q", part)
		}
	}
	return col, nil
}

// classify maps a Go field type to the type-mapping key, its kind and
// whether it is a nullable wrapper.
func classify(t reflect.Type) (string, Kind, bool, error) {
	nullable := false
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		nullable = true
		if t.Kind() == reflect.Pointer {
			return "", 0, false, fmt.Errorf("unsupported type %s", t)
		}
	}
	if inner, ok := nullTypes[t]; ok {
		if nullable {
			return "", 0, false, fmt.Errorf("unsupported type *%s", t)
		}
		t = inner
		nullable = true
	}

	switch t {
	case timeType:
		return "time.Time", KindTime, nullable, nil
	case uuidType:
		return "uuid.UUID", KindText, nullable, nil
	case bytesType:
		return "[]byte", KindBlob, nullable, nil
	}

	name := t.Kind().String()
	kind, ok := kindOfTypeName(name)
	if !ok {
		return "", 0, false, fmt.Errorf("unsupported type %s", t)
	}
	return name, kind, nullable, nil
}

func kindOfTypeName(name string) (Kind, bool) {
	switch name {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return KindInteger, true
	case "string", "uuid.UUID":
		return KindText, true
	case "float32", "float64":
		return KindReal, true
	case "bool":
		return KindBoolean, true
	case "time.Time":
		return KindTime, true
	case "[]byte":
		return KindBlob, true
	}
	return 0, false
}

func isScalarStruct(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	_, ok := nullTypes[t]
	return ok
}

// TableName derives a table name from a type name: UserProfile -> user_profile.
func TableName(typeName string) string {
	return inflector.Underscore(typeName)
}

// AliasFor derives an alias from a table name using the first letter of
// each underscore-separated part: user_profile -> up.
func AliasFor(table string) string {
	var b strings.Builder
	for _, part := range strings.Split(table, "_") {
		if part != "" {
			b.WriteByte(part[0])
		}
	}
	if b.Len() == 0 {
		return table
	}
	return strings.ToLower(b.String())
}
