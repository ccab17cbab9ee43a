// Package loader builds model registries from schema files: YAML
// documents and Go source directories with tagged structs.
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/ormato/generator"
	"github.com/ridoystarlord/ormato/schema"
)

// Schema is the result of loading a schema file.
type Schema struct {
	Registry *schema.Registry

	// Types overrides entries of the dialect type mapping. Empty when the
	// file declares none.
	Types generator.TypeMapping
}

// Mapping merges the schema's type overrides into base and returns the
// result. base is not modified.
func (s *Schema) Mapping(base generator.TypeMapping) generator.TypeMapping {
	out := make(generator.TypeMapping, len(base)+len(s.Types))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range s.Types {
		out[k] = v
	}
	return out
}

type yamlFile struct {
	Types  map[string]string `yaml:"types"`
	Tables []yamlTable       `yaml:"tables"`
}

type yamlTable struct {
	Name        string           `yaml:"name"`
	Model       string           `yaml:"model"`
	Alias       string           `yaml:"alias"`
	Columns     []yamlColumn     `yaml:"columns"`
	PrimaryKey  []string         `yaml:"primary_key"`
	Unique      [][]string       `yaml:"unique"`
	ForeignKeys []yamlForeignKey `yaml:"foreign_keys"`
}

type yamlColumn struct {
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"`
	Primary  bool    `yaml:"primary"`
	Unique   bool    `yaml:"unique"`
	Nullable bool    `yaml:"nullable"`
	Default  *string `yaml:"default"`
}

type yamlForeignKey struct {
	Columns    []string `yaml:"columns"`
	References string   `yaml:"references"`
	RefColumns []string `yaml:"ref_columns"`
	OnDelete   string   `yaml:"on_delete"`
	OnUpdate   string   `yaml:"on_update"`
}

// LoadModelsFromYAML reads a YAML schema file.
func LoadModelsFromYAML(filename string) (*Schema, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML builds a schema from a YAML document of the form
//
//	types:
//	  string: VARCHAR(255)
//	tables:
//	  - name: users
//	    columns:
//	      - {name: id, type: int64, primary: true}
//	      - {name: email, type: string, unique: true}
//	  - name: posts
//	    columns:
//	      - {name: id, type: int64, primary: true}
//	      - {name: user_id, type: int64}
//	    foreign_keys:
//	      - {columns: [user_id], references: users, ref_columns: [id], on_delete: CASCADE}
//
// Column types are Go type names (int64, *string, time.Time, uuid.UUID...)
// and are translated to SQL by the type mapping. Foreign keys are checked
// once every table is registered.
func ParseYAML(data []byte) (*Schema, error) {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}

	reg := schema.NewRegistry()
	for _, t := range yf.Tables {
		var (
			columns []schema.Column
			primary []string
			cons    []schema.Constraint
		)
		for _, c := range t.Columns {
			typ := c.Type
			if c.Nullable && typ != "" && typ[0] != '*' {
				typ = "*" + typ
			}
			columns = append(columns, schema.Column{Name: c.Name, Type: typ, Default: c.Default})
			if c.Primary {
				primary = append(primary, c.Name)
			}
			if c.Unique {
				cons = append(cons, schema.NewUnique(c.Name))
			}
		}
		if len(t.PrimaryKey) > 0 {
			if len(primary) > 0 {
				return nil, schema.Configf(t.Name, "primary key declared both on columns and in primary_key")
			}
			primary = t.PrimaryKey
		}
		if len(primary) > 0 {
			cons = append(cons, schema.NewPrimaryKey(primary...))
		}
		for _, u := range t.Unique {
			cons = append(cons, schema.NewUnique(u...))
		}
		for _, fk := range t.ForeignKeys {
			c := schema.NewForeignKey(fk.Columns, fk.References, fk.RefColumns)
			c.OnDelete = fk.OnDelete
			c.OnUpdate = fk.OnUpdate
			cons = append(cons, c)
		}

		name := t.Model
		if name == "" {
			name = t.Name
		}
		m, err := schema.NewModel(name, t.Name, t.Alias, columns)
		if err != nil {
			return nil, err
		}
		if _, err := reg.RegisterModel(m, cons...); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &Schema{Registry: reg, Types: yf.Types}, nil
}
