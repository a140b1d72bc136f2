package models

// ValidationOutcome is the tag of a ValidationResult.
type ValidationOutcome string

const (
	ValidationAccepted ValidationOutcome = "accepted"
	ValidationRejected ValidationOutcome = "rejected"
	ValidationFatal    ValidationOutcome = "fatal"
)

// ValidationResult is the outcome of a single code validation call. Exactly one
// variant is populated, selected by Outcome.
type ValidationResult struct {
	Outcome ValidationOutcome `json:"outcome"`

	// Accepted. Nil for standalone code, which has no template.
	Template *NodeClass `json:"template,omitempty"`

	// Rejected.
	ImportErrors   []string `json:"import_errors,omitempty"`
	FunctionErrors []string `json:"function_errors,omitempty"`

	// Fatal.
	Error     string  `json:"error,omitempty"`
	Traceback *string `json:"traceback,omitempty"`
}

// Accepted builds an accepted result.
func Accepted(template *NodeClass) ValidationResult {
	return ValidationResult{Outcome: ValidationAccepted, Template: template}
}

// Rejected builds a rejected result. Nil groups are normalized to empty slices.
func Rejected(importErrors, functionErrors []string) ValidationResult {
	if importErrors == nil {
		importErrors = []string{}
	}

	if functionErrors == nil {
		functionErrors = []string{}
	}

	return ValidationResult{
		Outcome:        ValidationRejected,
		ImportErrors:   importErrors,
		FunctionErrors: functionErrors,
	}
}

// Fatal builds a fatal result. traceback may be nil.
func Fatal(err string, traceback *string) ValidationResult {
	return ValidationResult{Outcome: ValidationFatal, Error: err, Traceback: traceback}
}

// InlineError is the error/traceback pair held by a code surface for inline display.
type InlineError struct {
	Error     string  `json:"error"`
	Traceback *string `json:"traceback,omitempty"`
}
