// Package models defines the core domain models for flow and component documents
package models

import (
	"encoding/json"
	"time"
)

// FlowDocument is a persisted or in-progress flow (or reusable component) graph.
type FlowDocument struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"                          validate:"required"`
	Description       string     `json:"description"`
	Data              *FlowData  `json:"data,omitempty"`
	IsComponent       bool       `json:"is_component"`
	CreatedAt         *time.Time `json:"date_created,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`         // nil until first explicit save
	LastTestedVersion string     `json:"last_tested_version,omitempty"`
	StoreLinked       bool       `json:"store_linked,omitempty"`
}

// Kind returns the user facing name of the document class.
func (d *FlowDocument) Kind() string {
	if d.IsComponent {
		return "Component"
	}

	return "Flow"
}

// Saved reports whether the document has been explicitly saved since creation.
func (d *FlowDocument) Saved() bool {
	return d.UpdatedAt != nil
}

// FlowData is the graph payload of a document.
type FlowData struct {
	Nodes    []*Node        `json:"nodes"`
	Edges    []*Edge        `json:"edges"`
	Viewport map[string]any `json:"viewport,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Node is a single component instance placed in a flow.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position map[string]any `json:"position,omitempty"`
	Data     NodeData       `json:"data"`

	// Extra keeps UI keys such as width, height and selected.
	Extra map[string]json.RawMessage `json:"-"`
}

// NodeData wraps the node class of a node.
type NodeData struct {
	ID   string     `json:"id"`
	Type string     `json:"type"`
	Node *NodeClass `json:"node,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Edge connects two nodes.
type Edge struct {
	ID           string         `json:"id"`
	Source       string         `json:"source"`
	Target       string         `json:"target"`
	SourceHandle string         `json:"sourceHandle,omitempty"`
	TargetHandle string         `json:"targetHandle,omitempty"`
	Data         map[string]any `json:"data,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// NodeClass describes a component: its configurable template fields and metadata.
// For dynamic components it is produced by the remote compiler.
type NodeClass struct {
	Template      map[string]*TemplateField `json:"template"`
	Description   string                    `json:"description,omitempty"`
	DisplayName   string                    `json:"display_name,omitempty"`
	BaseClasses   []string                  `json:"base_classes,omitempty"`
	Documentation string                    `json:"documentation,omitempty"`
	Beta          bool                      `json:"beta,omitempty"`
	CustomFields  map[string][]string       `json:"custom_fields,omitempty"`
	OutputTypes   []string                  `json:"output_types,omitempty"`

	// TemplateMeta holds template entries that are not fields, such as "_type".
	TemplateMeta map[string]any `json:"-"`
	// Extra holds class keys not declared above, such as field_order.
	Extra map[string]json.RawMessage `json:"-"`
}

// CodeFieldName is the template key holding a component's source code.
const CodeFieldName = "code"

// Field returns the template field stored under key, or nil.
func (c *NodeClass) Field(key string) *TemplateField {
	if c == nil || c.Template == nil {
		return nil
	}

	return c.Template[key]
}

// Template field types with special handling.
const (
	FieldTypeCode = "code"
	FieldTypeFile = "file"
)

// TemplateField is one configurable input of a node class.
type TemplateField struct {
	Type        string   `json:"type"`
	Value       any      `json:"value,omitempty"`
	Required    bool     `json:"required"`
	Show        bool     `json:"show"`
	Password    bool     `json:"password,omitempty"`
	Dynamic     bool     `json:"dynamic,omitempty"`
	Multiline   bool     `json:"multiline,omitempty"`
	Advanced    bool     `json:"advanced,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	FileTypes   []string `json:"fileTypes,omitempty"`
	FilePath    string   `json:"file_path,omitempty"`

	// Extra holds field keys not declared above, such as options or placeholder.
	Extra map[string]json.RawMessage `json:"-"`
}

// FieldRef addresses one template field of one node inside one document.
type FieldRef struct {
	DocumentID string `json:"document_id" validate:"required"`
	NodeID     string `json:"node_id"     validate:"required"`
	Field      string `json:"field"       validate:"required"`
}

// FindNode returns the node with the given id, or nil.
func (d *FlowDocument) FindNode(nodeID string) *Node {
	if d == nil || d.Data == nil {
		return nil
	}

	for _, node := range d.Data.Nodes {
		if node != nil && node.ID == nodeID {
			return node
		}
	}

	return nil
}

// Fields calls fn for every template field of every node in the document.
func (d *FlowDocument) Fields(fn func(node *Node, key string, field *TemplateField)) {
	if d == nil || d.Data == nil {
		return
	}

	for _, node := range d.Data.Nodes {
		if node == nil || node.Data.Node == nil {
			continue
		}

		for key, field := range node.Data.Node.Template {
			if field != nil {
				fn(node, key, field)
			}
		}
	}
}
