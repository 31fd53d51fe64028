package integration

import (
	stderrors "errors"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	ErrCodeValidation      = "VALIDATION_FAILED"
	ErrCodeInvalidTemplate = "INTEGRATION_INVALID_TEMPLATE"
	ErrCodeUnknownField    = "INTEGRATION_UNKNOWN_FIELD"
	ErrCodePipelineRunning = "INTEGRATION_PIPELINE_RUNNING"
	ErrCodeWrongStep       = "INTEGRATION_WRONG_STEP"
	ErrCodeNotCompletable  = "INTEGRATION_NOT_COMPLETABLE"
	ErrCodeCommitFailed    = "INTEGRATION_COMMIT_FAILED"
	ErrCodeStageFailed     = "VERIFY_STAGE_FAILED"
	ErrCodeHookFailed      = "WIZARD_HOOK_FAILED"
	ErrCodePanic           = "INTEGRATION_PANIC"
)

// ErrValidation is a sentinel error used to mark validation failures.
// Sentinels are cloned before use, so compare with HasCode(err, ErrCodeValidation),
// not errors.Is.
var ErrValidation = errors.New("validation error", errors.CategoryValidation).
	WithTextCode(ErrCodeValidation)

var (
	ErrInvalidTemplate = errors.New("unknown mapping template", errors.CategoryBadInput).
				WithTextCode(ErrCodeInvalidTemplate)
	ErrUnknownField = errors.New("unknown canonical field", errors.CategoryBadInput).
			WithTextCode(ErrCodeUnknownField)
	ErrPipelineRunning = errors.New("verification pipeline is running", errors.CategoryConflict).
				WithTextCode(ErrCodePipelineRunning)
	ErrWrongStep = errors.New("operation not available on current step", errors.CategoryBadInput).
			WithTextCode(ErrCodeWrongStep)
	ErrNotCompletable = errors.New("integration cannot be completed", errors.CategoryBadInput).
				WithTextCode(ErrCodeNotCompletable)
	ErrCommitFailed = errors.New("integration commit failed", errors.CategoryExternal).
			WithTextCode(ErrCodeCommitFailed)
	ErrStageFailed = errors.New("verification stage failed", errors.CategoryExternal).
			WithTextCode(ErrCodeStageFailed)
	ErrHookFailed = errors.New("lifecycle hook failed", errors.CategoryHandler).
			WithTextCode(ErrCodeHookFailed)
	ErrPanic = errors.New("recovered from panic", errors.CategoryHandler).
			WithTextCode(ErrCodePanic)
)

// CloneError copies a sentinel and decorates it with message, source and metadata.
// The copy is a new pointer; it keeps the sentinel's text code for HasCode.
func CloneError(base *errors.Error, message string, source error, metadata map[string]any) *errors.Error {
	if base == nil {
		base = ErrValidation
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrorCode returns the text code of a categorised error, or "".
func ErrorCode(err error) string {
	var ge *errors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// HasCode reports whether any categorised error in err's chain carries code.
// Joined errors are searched too.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if ge, ok := err.(*errors.Error); ok && ge.TextCode == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return HasCode(u.Unwrap(), code)
	}
	return false
}
