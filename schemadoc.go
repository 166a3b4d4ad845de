package toolman

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// ParseSchema builds a Schema from an explicit JSON Schema document, written in JSON or YAML:
//
//	{"type": "object",
//	 "properties": {"location": {"type": "string"}, "unit": {"type": "string", "default": "Celsius"}},
//	 "required": ["location"]}
//
// Only flat objects of string, integer, number and boolean properties are accepted.
// Field order follows the order of keys under "properties" in the document.
func ParseSchema(data []byte) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty schema document", ErrInvalidSchema)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: schema document must be an object", ErrInvalidSchema)
	}
	var header struct {
		Type     string   `yaml:"type"`
		Required []string `yaml:"required"`
	}
	if err := root.Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	if header.Type != "" && header.Type != "object" {
		return nil, fmt.Errorf("%w: root type must be object, got %q", ErrInvalidSchema, header.Type)
	}
	required := make(map[string]bool, len(header.Required))
	for _, name := range header.Required {
		required[name] = true
	}

	var fields []Field
	if props := mappingValue(root, "properties"); props != nil {
		if props.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: properties must be an object", ErrInvalidSchema)
		}
		for i := 0; i+1 < len(props.Content); i += 2 {
			name := props.Content[i].Value
			var p struct {
				Type        string `yaml:"type"`
				Description string `yaml:"description"`
				Default     any    `yaml:"default"`
				Enum        []any  `yaml:"enum"`
			}
			if err := props.Content[i+1].Decode(&p); err != nil {
				return nil, fmt.Errorf("%w: property %q: %w", ErrInvalidSchema, name, err)
			}
			fields = append(fields, Field{
				Name:        name,
				Kind:        Kind(p.Type),
				Required:    required[name],
				Default:     p.Default,
				Description: p.Description,
				Enum:        p.Enum,
			})
			delete(required, name)
		}
	}
	if len(required) > 0 {
		names := slices.Sorted(maps.Keys(required))
		return nil, fmt.Errorf("%w: required fields %q are not declared in properties", ErrInvalidSchema, names)
	}
	return NewSchema(fields...)
}

// SchemaFromMap builds a Schema from a JSON Schema already decoded into a map (see ParseSchema).
// Go maps are unordered, so properties come out sorted by name unless the "properties" value
// marshals in a defined order (as the one returned by Schema.JSONSchema does).
func SchemaFromMap(m map[string]any) (*Schema, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: schema map must not be nil", ErrInvalidSchema)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	return ParseSchema(data)
}

// mappingValue returns the value node for key in a YAML mapping node, or nil.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
