// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/google/uuid"
)

// CreateTestDocument creates a FlowDocument with default values that can be overridden.
func CreateTestDocument(overrides ...func(*models.FlowDocument)) *models.FlowDocument {
	doc := &models.FlowDocument{
		ID:          uuid.New().String(),
		Name:        "Test Flow",
		Description: "A flow used in tests",
		Data: &models.FlowData{
			Nodes: []*models.Node{},
			Edges: []*models.Edge{},
		},
	}

	for _, override := range overrides {
		override(doc)
	}

	return doc
}

// WithName sets the document name.
func WithName(name string) func(*models.FlowDocument) {
	return func(d *models.FlowDocument) {
		d.Name = name
	}
}

// AsComponent marks the document as a component.
func AsComponent() func(*models.FlowDocument) {
	return func(d *models.FlowDocument) {
		d.IsComponent = true
	}
}

// WithNodes appends nodes to the document graph.
func WithNodes(nodes ...*models.Node) func(*models.FlowDocument) {
	return func(d *models.FlowDocument) {
		d.Data.Nodes = append(d.Data.Nodes, nodes...)
	}
}

// CreateTestNode creates a generic node whose node class holds the given template.
func CreateTestNode(id string, template map[string]*models.TemplateField) *models.Node {
	if template == nil {
		template = map[string]*models.TemplateField{}
	}

	return &models.Node{
		ID:       id,
		Type:     "genericNode",
		Position: map[string]any{"x": 100.0, "y": 200.0},
		Data: models.NodeData{
			ID:   id,
			Type: "CustomComponent",
			Node: &models.NodeClass{
				Template:    template,
				DisplayName: "Custom Component",
				BaseClasses: []string{"Data"},
			},
		},
	}
}

// CodeField returns a code template field holding code.
func CodeField(code string, dynamic bool) *models.TemplateField {
	return &models.TemplateField{
		Type:      models.FieldTypeCode,
		Value:     code,
		Required:  true,
		Show:      true,
		Dynamic:   dynamic,
		Multiline: true,
	}
}

// SecretField returns a password template field.
func SecretField(value string) *models.TemplateField {
	return &models.TemplateField{Type: "str", Value: value, Show: true, Password: true}
}

// FileField returns a file template field accepting fileTypes.
func FileField(fileTypes ...string) *models.TemplateField {
	return &models.TemplateField{Type: models.FieldTypeFile, Show: true, FileTypes: fileTypes}
}
