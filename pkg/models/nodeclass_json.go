package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// UnmarshalJSON decodes object template entries as fields and keeps every
// other entry in TemplateMeta. Undeclared class keys go to Extra.
func (c *NodeClass) UnmarshalJSON(data []byte) error {
	type plain NodeClass

	var raw struct {
		plain
		Template map[string]json.RawMessage `json:"template"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	extra, err := extraKeys(data, reflect.TypeFor[NodeClass]())
	if err != nil {
		return err
	}

	*c = NodeClass(raw.plain)
	c.Template = nil
	c.TemplateMeta = nil
	c.Extra = extra

	if raw.Template == nil {
		return nil
	}

	c.Template = make(map[string]*TemplateField, len(raw.Template))

	for key, value := range raw.Template {
		trimmed := bytes.TrimSpace(value)

		switch {
		case len(trimmed) > 0 && trimmed[0] == '{':
			var field TemplateField
			if err := json.Unmarshal(trimmed, &field); err != nil {
				return fmt.Errorf("template field %q: %w", key, err)
			}

			c.Template[key] = &field
		case bytes.Equal(trimmed, []byte("null")):
		default:
			var meta any
			if err := json.Unmarshal(trimmed, &meta); err != nil {
				return fmt.Errorf("template entry %q: %w", key, err)
			}

			if c.TemplateMeta == nil {
				c.TemplateMeta = make(map[string]any)
			}

			c.TemplateMeta[key] = meta
		}
	}

	return nil
}

// MarshalJSON merges TemplateMeta back into the template object and Extra
// back into the class object.
func (c NodeClass) MarshalJSON() ([]byte, error) {
	type plain NodeClass

	template := make(map[string]any, len(c.Template)+len(c.TemplateMeta))
	for key, value := range c.TemplateMeta {
		template[key] = value
	}

	for key, field := range c.Template {
		template[key] = field
	}

	return withExtra(struct {
		plain
		Template map[string]any `json:"template"`
	}{
		plain:    plain(c),
		Template: template,
	}, c.Extra)
}
