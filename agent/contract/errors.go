package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrClassifier      = errors.New("classification failed")
	ErrRoutingLoop     = errors.New("routing exceeded iteration cap")
	ErrUnknownStage    = errors.New("route names an unknown stage")
	ErrAgentInvocation = errors.New("agent invocation failed")
	ErrConfiguration   = errors.New("graph configuration invalid")
)
