package orm

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ridoystarlord/ormato/database"
	"github.com/ridoystarlord/ormato/schema"
)

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	bytesType   = reflect.TypeOf([]byte(nil))
)

// timeLayouts are tried in order when a driver returns time as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Hydrate copies the rows of rs into dest by column name. dest is a
// pointer to a slice of m's Go type, a pointer to a slice of pointers to
// it, or a pointer to a single value which receives the first row.
// Result columns the model does not declare are ignored.
func Hydrate(m *schema.Model, rs *database.ResultSet, dest any) error {
	if m == nil || m.Type() == nil {
		return schema.Configf("", "hydration needs a model with a Go type")
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("hydrate: destination must be a non-nil pointer, got %T", dest)
	}
	target := dv.Elem()
	typ := m.Type()

	fields := make([][]int, 0)
	cols := make([]int, 0)
	if rs != nil {
		for i, c := range rs.Columns {
			if idx, ok := m.FieldIndex(c); ok {
				fields = append(fields, idx)
				cols = append(cols, i)
			}
		}
	}

	fill := func(row []any, sv reflect.Value) error {
		for k, idx := range fields {
			f := sv.FieldByIndex(idx)
			if err := assign(f, row[cols[k]]); err != nil {
				return fmt.Errorf("hydrate %s.%s: %w", m.Name(), rs.Columns[cols[k]], err)
			}
		}
		return nil
	}

	switch {
	case target.Kind() == reflect.Slice && target.Type().Elem() == typ:
		out := reflect.MakeSlice(target.Type(), 0, rs.Len())
		for _, row := range rowsOf(rs) {
			sv := reflect.New(typ).Elem()
			if err := fill(row, sv); err != nil {
				return err
			}
			out = reflect.Append(out, sv)
		}
		target.Set(out)
	case target.Kind() == reflect.Slice && target.Type().Elem() == reflect.PointerTo(typ):
		out := reflect.MakeSlice(target.Type(), 0, rs.Len())
		for _, row := range rowsOf(rs) {
			pv := reflect.New(typ)
			if err := fill(row, pv.Elem()); err != nil {
				return err
			}
			out = reflect.Append(out, pv)
		}
		target.Set(out)
	case target.Type() == typ:
		if rs.Len() == 0 {
			return ErrNotFound
		}
		sv := reflect.New(typ).Elem()
		if err := fill(rs.Rows[0], sv); err != nil {
			return err
		}
		target.Set(sv)
	default:
		return fmt.Errorf("hydrate: cannot hydrate %s into %T", m.Name(), dest)
	}
	return nil
}

func rowsOf(rs *database.ResultSet) [][]any {
	if rs == nil {
		return nil
	}
	return rs.Rows
}

// assign stores a driver value into a struct field, converting between the
// representations drivers use: int64 for every integer, []byte or string
// for text, int64 for SQLite booleans and text for SQLite timestamps.
func assign(f reflect.Value, v any) error {
	if v == nil {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}
	vv := reflect.ValueOf(v)
	if vv.Type().AssignableTo(f.Type()) {
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
			vv = reflect.ValueOf(v)
		}
		f.Set(vv)
		return nil
	}
	if f.CanAddr() && f.Addr().Type().Implements(scannerType) {
		return f.Addr().Interface().(sql.Scanner).Scan(v)
	}
	if f.Kind() == reflect.Pointer {
		p := reflect.New(f.Type().Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		f.Set(p)
		return nil
	}
	if f.Type() == timeType {
		t, err := asTime(v)
		if err != nil {
			return err
		}
		f.Set(reflect.ValueOf(t))
		return nil
	}
	if f.Type() == bytesType {
		if s, ok := v.(string); ok {
			f.SetBytes([]byte(s))
			return nil
		}
	}

	switch f.Kind() {
	case reflect.String:
		switch v := v.(type) {
		case []byte:
			f.SetString(string(v))
			return nil
		case string:
			f.SetString(v)
			return nil
		}
	case reflect.Bool:
		switch {
		case vv.CanInt():
			f.SetBool(vv.Int() != 0)
			return nil
		case vv.Kind() == reflect.String || vv.Type() == bytesType:
			b, err := strconv.ParseBool(textOf(v))
			if err != nil {
				return err
			}
			f.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := asInt(vv, v)
		if err != nil {
			return err
		}
		if f.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, f.Type())
		}
		f.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := asInt(vv, v)
		if err != nil {
			return err
		}
		if n < 0 || f.OverflowUint(uint64(n)) {
			return fmt.Errorf("value %d overflows %s", n, f.Type())
		}
		f.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		switch {
		case vv.CanFloat():
			f.SetFloat(vv.Float())
			return nil
		case vv.CanInt():
			f.SetFloat(float64(vv.Int()))
			return nil
		case vv.Kind() == reflect.String || vv.Type() == bytesType:
			x, err := strconv.ParseFloat(textOf(v), 64)
			if err != nil {
				return err
			}
			f.SetFloat(x)
			return nil
		}
	}

	if vv.Type().ConvertibleTo(f.Type()) && vv.Kind() == f.Kind() {
		f.Set(vv.Convert(f.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", v, f.Type())
}

func asInt(vv reflect.Value, v any) (int64, error) {
	switch {
	case vv.CanInt():
		return vv.Int(), nil
	case vv.CanUint():
		return int64(vv.Uint()), nil
	case vv.Kind() == reflect.Bool:
		if vv.Bool() {
			return 1, nil
		}
		return 0, nil
	case vv.Kind() == reflect.String || vv.Type() == bytesType:
		return strconv.ParseInt(textOf(v), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to an integer", v)
}

func textOf(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return reflect.ValueOf(v).String()
}

func asTime(v any) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	case int64:
		return time.Unix(v, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to time.Time", v)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	// time.Time.String() output carries a monotonic clock suffix.
	if i := strings.Index(s, " m="); i > 0 {
		s = s[:i]
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}
