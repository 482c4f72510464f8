// Package ierr defines the error-kind taxonomy of the integration core
// (spec §7). Every exported error type carries a Code and a fresh
// ErrorID so log lines and remote sync events can be correlated.
package ierr

import (
	"fmt"

	"github.com/google/uuid"
)

// Code identifies one of the error kinds from §7.
type Code string

const (
	CodeConfigValidation        Code = "CONFIG_VALIDATION"
	CodeProviderAuthentication  Code = "PROVIDER_AUTHENTICATION"
	CodeProviderAuthorization   Code = "PROVIDER_AUTHORIZATION"
	CodeIntegrationValidation   Code = "INTEGRATION_VALIDATION"
	CodeStepExecution           Code = "STEP_EXECUTION"
	CodeCanonicalization        Code = "CANONICALIZATION"
	CodeSynchronizationAPI      Code = "SYNCHRONIZATION_API"
	CodeUnexpected              Code = "UNEXPECTED_ERROR_REASON"
)

// Error is the common shape every core error satisfies.
type Error struct {
	Code    Code
	ErrorID string
	Reason  string
	Extra   map[string]string
	Cause   error
}

// New builds an Error, minting a fresh ErrorID.
func New(code Code, reason string, cause error) *Error {
	return &Error{
		Code:    code,
		ErrorID: uuid.NewString(),
		Reason:  reason,
		Cause:   cause,
	}
}

// WithExtra attaches an additional correlation field to the description.
func (e *Error) WithExtra(key, value string) *Error {
	if e.Extra == nil {
		e.Extra = make(map[string]string)
	}
	e.Extra[key] = value
	return e
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Error() string {
	s := fmt.Sprintf(`errorCode="%s", errorId="%s", reason="%s"`, e.Code, e.ErrorID, e.Reason)
	for k, v := range e.Extra {
		s += fmt.Sprintf(`, %s="%s"`, k, v)
	}
	return s
}

// Describe formats the error per §6's "<prefix> (...)" log-line shape.
func (e *Error) Describe(prefix string) string {
	return fmt.Sprintf("%s (%s)", prefix, e.Error())
}

// ConfigValidation wraps a missing/wrong-typed instance config field or an
// invalid start-state.
func ConfigValidation(reason string, cause error) *Error {
	return New(CodeConfigValidation, reason, cause)
}

// StepStartStateInvalidStepID reports a start-state key naming an
// undeclared step.
func StepStartStateInvalidStepID(stepID string) *Error {
	return ConfigValidation(fmt.Sprintf("start state references unknown step %q", stepID), nil).
		WithExtra("stepId", stepID)
}

// UnaccountedStepStartStates reports declared steps missing from the
// start-state map.
func UnaccountedStepStartStates(stepIDs []string) *Error {
	return ConfigValidation(fmt.Sprintf("start states missing for steps %v", stepIDs), nil).
		WithExtra("stepIds", fmt.Sprint(stepIDs))
}

// ProviderAuth builds a ProviderAuthentication or ProviderAuthorization
// error per the exact reason format in §7.
func ProviderAuth(authorization bool, endpoint string, status int, statusText string) *Error {
	code := CodeProviderAuthentication
	verb := "authentication"
	if authorization {
		code = CodeProviderAuthorization
		verb = "authorization"
	}
	reason := fmt.Sprintf("Provider %s failed at %s: %d %s", verb, endpoint, status, statusText)
	return New(code, reason, nil).
		WithExtra("endpoint", endpoint).
		WithExtra("status", fmt.Sprint(status)).
		WithExtra("statusText", statusText)
}

// IntegrationValidation wraps an error raised by validateInvocation.
func IntegrationValidation(cause error) *Error {
	return New(CodeIntegrationValidation, cause.Error(), cause)
}

// StepExecution wraps an uncaught handler error.
func StepExecution(stepID string, cause error) *Error {
	return New(CodeStepExecution, cause.Error(), cause).WithExtra("stepId", stepID)
}

// Canonicalization wraps a createIntegrationEntity failure.
func Canonicalization(reason string) *Error {
	return New(CodeCanonicalization, reason, nil)
}

// SynchronizationAPI wraps a persistent remote-call failure.
func SynchronizationAPI(reason string, cause error) *Error {
	return New(CodeSynchronizationAPI, reason, cause)
}

// Unexpected wraps any error without an existing Code.
func Unexpected(cause error) *Error {
	if cause == nil {
		return New(CodeUnexpected, "UNEXPECTED_ERROR_REASON", nil)
	}
	if ie, ok := cause.(*Error); ok {
		return ie
	}
	return New(CodeUnexpected, cause.Error(), cause)
}
