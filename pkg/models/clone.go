package models

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// Clone returns a deep copy of the document. The copy shares no mutable state with d.
func (d *FlowDocument) Clone() *FlowDocument {
	if d == nil {
		return nil
	}

	clone := *d
	clone.CreatedAt = cloneTime(d.CreatedAt)
	clone.UpdatedAt = cloneTime(d.UpdatedAt)
	clone.Data = d.Data.Clone()

	return &clone
}

// Clone returns a deep copy of the graph payload.
func (f *FlowData) Clone() *FlowData {
	if f == nil {
		return nil
	}

	clone := &FlowData{
		Viewport: cloneMap(f.Viewport),
		Extra:    cloneRaw(f.Extra),
	}

	if f.Nodes != nil {
		clone.Nodes = make([]*Node, len(f.Nodes))
		for i, node := range f.Nodes {
			clone.Nodes[i] = node.Clone()
		}
	}

	if f.Edges != nil {
		clone.Edges = make([]*Edge, len(f.Edges))
		for i, edge := range f.Edges {
			if edge == nil {
				continue
			}

			e := *edge
			e.Data = cloneMap(edge.Data)
			e.Extra = cloneRaw(edge.Extra)
			clone.Edges[i] = &e
		}
	}

	return clone
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	clone := *n
	clone.Position = cloneMap(n.Position)
	clone.Extra = cloneRaw(n.Extra)
	clone.Data.Node = n.Data.Node.Clone()
	clone.Data.Extra = cloneRaw(n.Data.Extra)

	return &clone
}

// Clone returns a deep copy of the node class.
func (c *NodeClass) Clone() *NodeClass {
	if c == nil {
		return nil
	}

	clone := *c
	clone.BaseClasses = slices.Clone(c.BaseClasses)
	clone.OutputTypes = slices.Clone(c.OutputTypes)
	clone.TemplateMeta = cloneMap(c.TemplateMeta)
	clone.Extra = cloneRaw(c.Extra)

	if c.CustomFields != nil {
		clone.CustomFields = make(map[string][]string, len(c.CustomFields))
		for k, v := range c.CustomFields {
			clone.CustomFields[k] = slices.Clone(v)
		}
	}

	if c.Template != nil {
		clone.Template = make(map[string]*TemplateField, len(c.Template))
		for k, field := range c.Template {
			clone.Template[k] = field.Clone()
		}
	}

	return &clone
}

// Clone returns a deep copy of the field.
func (f *TemplateField) Clone() *TemplateField {
	if f == nil {
		return nil
	}

	clone := *f
	clone.Value = cloneValue(f.Value)
	clone.FileTypes = slices.Clone(f.FileTypes)
	clone.Extra = cloneRaw(f.Extra)

	return &clone
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}

	clone := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		clone[k] = slices.Clone(v)
	}

	return clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	clone := maps.Clone(m)
	for k, v := range clone {
		clone[k] = cloneValue(v)
	}

	return clone
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneMap(value)
	case []any:
		clone := make([]any, len(value))
		for i, item := range value {
			clone[i] = cloneValue(item)
		}

		return clone
	case []string:
		return slices.Clone(value)
	default:
		return v
	}
}
