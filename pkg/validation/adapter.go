// Package validation sends component code to the backend for validation or
// compilation and applies the outcome to the document registry.
package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/flowstudio/pkg/client"
	"github.com/dukex/flowstudio/pkg/documents"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/notification"
	"github.com/dukex/flowstudio/pkg/otelhelper"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrMalformedTemplate is returned when a compiled component does not look like a node class.
	ErrMalformedTemplate = errors.New("malformed component template")

	// ErrUnknownDocument is returned by Submit when the document is not open.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrUnknownField is returned by Submit when the referenced field does not exist.
	ErrUnknownField = errors.New("unknown code field")

	// ErrInvalidReference is returned by Submit for an incomplete field reference.
	ErrInvalidReference = errors.New("invalid field reference")
)

// Notification titles.
const (
	TitleCodeReady      = "Code is ready to run"
	TitleImportErrors   = "There is an error in your imports"
	TitleFunctionErrors = "There is an error in your function"
)

// CodeAPI is the part of the backend the adapter talks to.
type CodeAPI interface {
	ValidateCode(ctx context.Context, code string) (*client.CodeCheck, error)
	CompileDynamicComponent(ctx context.Context, code string, current *models.NodeClass) (json.RawMessage, error)
}

// Outcome is what a code surface needs after applying a result.
type Outcome struct {
	Result models.ValidationResult `json:"result"`

	// Close reports that the triggering surface should close.
	Close bool `json:"close"`

	// Applied is false when an accepted result targeted a document or node
	// that no longer exists.
	Applied bool `json:"applied"`

	// Inline carries a fatal error for inline display.
	Inline *models.InlineError `json:"inline,omitempty"`
}

// Adapter validates code and applies results. It holds no per-call state.
type Adapter struct {
	api           CodeAPI
	registry      *documents.Registry
	notifications *notification.Center
	validate      *validator.Validate
	tracer        trace.Tracer
	logger        *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTracer records a span per validation call.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Adapter) {
		a.tracer = tracer
	}
}

// NewAdapter creates a validation adapter.
func NewAdapter(api CodeAPI, registry *documents.Registry, notifications *notification.Center, logger *slog.Logger, opts ...Option) *Adapter {
	adapter := &Adapter{
		api:           api,
		registry:      registry,
		notifications: notifications,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		tracer:        otelhelper.NoopTracer(),
		logger:        logger,
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// ValidateStandalone checks code that has no template of its own. Any
// transport or decoding failure degrades to Fatal without a traceback.
func (a *Adapter) ValidateStandalone(ctx context.Context, code string) models.ValidationResult {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "validation.standalone",
		attribute.String(otelhelper.ValidationModeKey, "standalone"),
	)
	defer span.End()

	check, err := a.api.ValidateCode(ctx, code)
	if err != nil {
		otelhelper.SetError(span, err)
		a.logger.WarnContext(ctx, "Code validation call failed", "error", err)

		return models.Fatal(errorMessage(err), nil)
	}

	if check == nil {
		return models.Fatal("empty validation response", nil)
	}

	var result models.ValidationResult
	if len(check.Imports.Errors) == 0 && len(check.Function.Errors) == 0 {
		result = models.Accepted(nil)
	} else {
		result = models.Rejected(check.Imports.Errors, check.Function.Errors)
	}

	otelhelper.SetOutcome(span, string(result.Outcome))

	return result
}

// ValidateDynamic compiles code against the current node class. On success the
// result carries the replacement node class.
func (a *Adapter) ValidateDynamic(ctx context.Context, code string, current *models.NodeClass) models.ValidationResult {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "validation.dynamic",
		attribute.String(otelhelper.ValidationModeKey, "dynamic"),
	)
	defer span.End()

	raw, err := a.api.CompileDynamicComponent(ctx, code, current)
	if err != nil {
		otelhelper.SetError(span, err)

		if apiErr, ok := client.IsAPIError(err); ok {
			return models.Fatal(apiErr.Detail, apiErr.Traceback)
		}

		a.logger.WarnContext(ctx, "Component compile call failed", "error", err)

		return models.Fatal(err.Error(), nil)
	}

	if err := checkNodeClass(raw); err != nil {
		otelhelper.SetError(span, err)

		return models.Fatal(err.Error(), nil)
	}

	var template models.NodeClass
	if err := json.Unmarshal(raw, &template); err != nil {
		otelhelper.SetError(span, err)

		return models.Fatal(fmt.Errorf("%w: %w", ErrMalformedTemplate, err).Error(), nil)
	}

	otelhelper.SetOutcome(span, string(models.ValidationAccepted))

	return models.Accepted(&template)
}

// Apply routes a result: accepted results patch the registry (whether or not
// the document is active), rejected results become one error notification per
// non-empty group, fatal results are returned for inline display only.
func (a *Adapter) Apply(ctx context.Context, ref models.FieldRef, code string, result models.ValidationResult) Outcome {
	outcome := Outcome{Result: result}

	switch result.Outcome {
	case models.ValidationAccepted:
		outcome.Close = true
		outcome.Applied = a.registry.Update(ctx, ref.DocumentID, func(doc *models.FlowDocument) {
			applyAccepted(doc, ref, code, result.Template)
		})

		if !outcome.Applied {
			a.logger.InfoContext(ctx, "Accepted code for a document that is gone", "document_id", ref.DocumentID)
		}

		if result.Template == nil {
			a.notifications.Success(ctx, TitleCodeReady)
		}
	case models.ValidationRejected:
		if len(result.FunctionErrors) > 0 {
			a.notifications.Error(ctx, TitleFunctionErrors, result.FunctionErrors...)
		}

		if len(result.ImportErrors) > 0 {
			a.notifications.Error(ctx, TitleImportErrors, result.ImportErrors...)
		}
	case models.ValidationFatal:
		outcome.Inline = &models.InlineError{Error: result.Error, Traceback: result.Traceback}
	}

	return outcome
}

// Submit validates code for the referenced field and applies the result. The
// field's dynamic flag selects the validation mode.
func (a *Adapter) Submit(ctx context.Context, ref models.FieldRef, code string) (Outcome, error) {
	if err := a.validate.Struct(&ref); err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}

	doc, ok := a.registry.Get(ref.DocumentID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownDocument, ref.DocumentID)
	}

	node := doc.FindNode(ref.NodeID)
	if node == nil || node.Data.Node.Field(ref.Field) == nil {
		return Outcome{}, fmt.Errorf("%w: %s/%s", ErrUnknownField, ref.NodeID, ref.Field)
	}

	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "validation.submit",
		attribute.String(otelhelper.DocumentIDKey, ref.DocumentID),
		attribute.String(otelhelper.NodeIDKey, ref.NodeID),
		attribute.String(otelhelper.FieldKey, ref.Field),
	)
	defer span.End()

	var result models.ValidationResult
	if node.Data.Node.Field(ref.Field).Dynamic {
		result = a.ValidateDynamic(ctx, code, node.Data.Node)
	} else {
		result = a.ValidateStandalone(ctx, code)
	}

	otelhelper.SetOutcome(span, string(result.Outcome))

	return a.Apply(ctx, ref, code, result), nil
}

// applyAccepted writes an accepted result into doc. A replacement template
// supersedes the node class wholesale and receives the submitted code.
func applyAccepted(doc *models.FlowDocument, ref models.FieldRef, code string, template *models.NodeClass) {
	node := doc.FindNode(ref.NodeID)
	if node == nil {
		return
	}

	if template != nil {
		node.Data.Node = template.Clone()

		if node.Data.Node.Template == nil {
			node.Data.Node.Template = make(map[string]*models.TemplateField)
		}

		field := node.Data.Node.Template[ref.Field]
		if field == nil {
			field = &models.TemplateField{Type: models.FieldTypeCode, Show: true, Multiline: true}
			node.Data.Node.Template[ref.Field] = field
		}

		field.Value = code

		return
	}

	if field := node.Data.Node.Field(ref.Field); field != nil {
		field.Value = code
	}
}

func errorMessage(err error) string {
	if apiErr, ok := client.IsAPIError(err); ok {
		return apiErr.Detail
	}

	return err.Error()
}
