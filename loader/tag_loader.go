package loader

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ridoystarlord/ormato/schema"
)

// TagLoader loads models from the Go source of a models directory without
// compiling it. Every exported struct with at least one `db` or `ormato`
// tag becomes a model. Constraints come from the `ormato` tag:
//
//	ID     int64  `db:"id" ormato:"primary"`
//	Email  string `ormato:"unique"`
//	UserID int64  `ormato:"fk:users.id:CASCADE"`
//
// TableName and Alias methods returning a string literal override the
// derived names, as they do for registered Go types.
type TagLoader struct {
	modelsDir string
}

// NewTagLoader creates a new tag loader
func NewTagLoader(modelsDir string) *TagLoader {
	return &TagLoader{modelsDir: modelsDir}
}

// LoadModelsFromTags loads a schema from the Go structs of modelsDir.
func LoadModelsFromTags(modelsDir string) (*Schema, error) {
	return NewTagLoader(modelsDir).Load()
}

type sourceModel struct {
	name    string
	columns []schema.Column
	cons    []schema.Constraint
	primary []string
}

// fieldTag is the parsed `ormato` tag of a field.
type fieldTag struct {
	Primary    bool
	Unique     bool
	ForeignKey *schema.ForeignKey
}

// Load parses every .go file of the directory, test files excluded.
func (tl *TagLoader) Load() (*Schema, error) {
	if _, err := os.Stat(tl.modelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("models directory '%s' does not exist", tl.modelsDir)
	}

	var (
		models  []*sourceModel
		methods = map[string]map[string]string{}
	)
	err := filepath.Walk(tl.modelsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		fileModels, err := tl.parseGoFile(path, methods)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		models = append(models, fileModels...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	sort.SliceStable(models, func(i, j int) bool { return models[i].name < models[j].name })

	reg := schema.NewRegistry()
	for _, sm := range models {
		m, err := schema.NewModel(sm.name, methods[sm.name]["TableName"], methods[sm.name]["Alias"], sm.columns)
		if err != nil {
			return nil, err
		}
		cons := sm.cons
		if len(sm.primary) > 0 {
			cons = append([]schema.Constraint{schema.NewPrimaryKey(sm.primary...)}, cons...)
		}
		if _, err := reg.RegisterModel(m, cons...); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &Schema{Registry: reg}, nil
}

// parseGoFile collects the tagged structs of a file and records string
// returning TableName/Alias methods into methods.
func (tl *TagLoader) parseGoFile(filePath string, methods map[string]map[string]string) ([]*sourceModel, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Go file: %w", err)
	}

	var models []*sourceModel
	var firstErr error
	ast.Inspect(node, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.TypeSpec:
			structType, ok := x.Type.(*ast.StructType)
			if !ok || !ast.IsExported(x.Name.Name) || x.TypeParams != nil {
				return true
			}
			sm, err := tl.parseStruct(x.Name.Name, structType)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if sm != nil {
				models = append(models, sm)
			}
		case *ast.FuncDecl:
			recv, name, value, ok := literalMethod(x)
			if ok && (name == "TableName" || name == "Alias") {
				if methods[recv] == nil {
					methods[recv] = map[string]string{}
				}
				methods[recv][name] = value
			}
		}
		return true
	})
	return models, firstErr
}

// parseStruct returns nil for structs that carry no tags.
func (tl *TagLoader) parseStruct(structName string, structType *ast.StructType) (*sourceModel, error) {
	sm := &sourceModel{name: structName}
	tagged := false
	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 {
			continue
		}
		fieldName := field.Names[0].Name
		if !ast.IsExported(fieldName) {
			continue
		}

		st := structTag(field.Tag)
		dbTag, hasDB := st.Lookup("db")
		ormatoTag, hasOrmato := st.Lookup("ormato")
		tagged = tagged || hasDB || hasOrmato
		if dbTag == "-" {
			continue
		}

		col, err := parseColumnTag(fieldName, dbTag)
		if err != nil {
			return nil, fmt.Errorf("error parsing tag on %s.%s: %w", structName, fieldName, err)
		}
		typ, ok := fieldType(field.Type)
		if !ok {
			return nil, &schema.ConfigurationError{Model: structName, Column: col.Name, Reason: "unsupported field type"}
		}
		col.Type = typ

		tag, err := parseOrmatoTag(ormatoTag)
		if err != nil {
			return nil, fmt.Errorf("error parsing tag on %s.%s: %w", structName, fieldName, err)
		}
		if tag.Primary {
			sm.primary = append(sm.primary, col.Name)
		}
		if tag.Unique {
			sm.cons = append(sm.cons, schema.NewUnique(col.Name))
		}
		if tag.ForeignKey != nil {
			fk := *tag.ForeignKey
			fk.Columns = []string{col.Name}
			sm.cons = append(sm.cons, fk)
		}
		sm.columns = append(sm.columns, col)
	}
	if !tagged {
		return nil, nil
	}
	return sm, nil
}

func structTag(lit *ast.BasicLit) reflect.StructTag {
	if lit == nil {
		return ""
	}
	value, err := strconv.Unquote(lit.Value)
	if err != nil {
		return ""
	}
	return reflect.StructTag(value)
}

// parseColumnTag reads `db:"name,default:value"` the same way registered
// Go types are read.
func parseColumnTag(fieldName, tag string) (schema.Column, error) {
	col := schema.Column{Name: schema.TableName(fieldName)}
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

// parseOrmatoTag parses "primary;unique;fk:table.column:on_delete:on_update".
func parseOrmatoTag(tag string) (fieldTag, error) {
	var ft fieldTag
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case part == "primary":
			ft.Primary = true
		case part == "unique":
			ft.Unique = true
		case strings.HasPrefix(part, "fk:"):
			fk, err := parseForeignKey(strings.TrimPrefix(part, "fk:"))
			if err != nil {
				return ft, err
			}
			ft.ForeignKey = fk
		default:
			return ft, fmt.Errorf("unknown ormato tag option %q", part)
		}
	}
	return ft, nil
}

func parseForeignKey(spec string) (*schema.ForeignKey, error) {
	parts := strings.Split(spec, ":")
	ref := strings.Split(parts[0], ".")
	if len(ref) != 2 || ref[0] == "" || ref[1] == "" {
		return nil, fmt.Errorf("foreign key %q must reference table.column", spec)
	}
	fk := schema.NewForeignKey(nil, ref[0], []string{ref[1]})
	if len(parts) > 1 {
		fk.OnDelete = parts[1]
	}
	if len(parts) > 2 {
		fk.OnUpdate = parts[2]
	}
	return &fk, nil
}

var nullWrappers = map[string]string{
	"sql.NullString":  "*string",
	"sql.NullInt64":   "*int64",
	"sql.NullInt32":   "*int32",
	"sql.NullInt16":   "*int16",
	"sql.NullByte":    "*uint8",
	"sql.NullFloat64": "*float64",
	"sql.NullBool":    "*bool",
	"sql.NullTime":    "*time.Time",
}

// fieldType renders a field type as a type-mapping key; pointers become
// nullable keys with a leading '*'.
func fieldType(expr ast.Expr) (string, bool) {
	switch t := expr.(type) {
	case *ast.Ident:
		if t.Name == "byte" {
			return "uint8", true
		}
		return t.Name, true
	case *ast.StarExpr:
		inner, ok := fieldType(t.X)
		if !ok || strings.HasPrefix(inner, "*") {
			return "", false
		}
		return "*" + inner, true
	case *ast.ArrayType:
		if elt, ok := t.Elt.(*ast.Ident); ok && t.Len == nil && elt.Name == "byte" {
			return "[]byte", true
		}
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			name := x.Name + "." + t.Sel.Name
			if nullable, ok := nullWrappers[name]; ok {
				return nullable, true
			}
			return name, true
		}
	}
	return "", false
}

// literalMethod matches `func (T) Name() string { return "literal" }`.
func literalMethod(fn *ast.FuncDecl) (recv, name, value string, ok bool) {
	if fn.Recv == nil || len(fn.Recv.List) != 1 || fn.Body == nil || len(fn.Body.List) != 1 {
		return "", "", "", false
	}
	typ := fn.Recv.List[0].Type
	if star, isStar := typ.(*ast.StarExpr); isStar {
		typ = star.X
	}
	ident, isIdent := typ.(*ast.Ident)
	if !isIdent {
		return "", "", "", false
	}
	ret, isRet := fn.Body.List[0].(*ast.ReturnStmt)
	if !isRet || len(ret.Results) != 1 {
		return "", "", "", false
	}
	lit, isLit := ret.Results[0].(*ast.BasicLit)
	if !isLit || lit.Kind != token.STRING {
		return "", "", "", false
	}
	value, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", "", "", false
	}
	return ident.Name, fn.Name.Name, value, true
}
