package integration

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestCloneErrorKeepsSentinelUntouched(t *testing.T) {
	source := stderrors.New("backend down")
	err := CloneError(ErrCommitFailed, "commit rejected", source, map[string]any{"session_id": "s1"})

	if err.TextCode != ErrCodeCommitFailed {
		t.Fatalf("expected text code %s, got %s", ErrCodeCommitFailed, err.TextCode)
	}
	if err.Message != "commit rejected" {
		t.Fatalf("unexpected message %q", err.Message)
	}
	if !stderrors.Is(err, source) {
		t.Fatalf("expected source to be unwrappable")
	}
	if ErrCommitFailed.Message != "integration commit failed" || ErrCommitFailed.Source != nil {
		t.Fatalf("sentinel was mutated: %+v", ErrCommitFailed)
	}
}

func TestHasCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("wizard: %w", CloneError(ErrWrongStep, "", nil, nil))
	if !HasCode(err, ErrCodeWrongStep) {
		t.Fatalf("expected wrapped error to keep its code")
	}
	if HasCode(nil, ErrCodeWrongStep) {
		t.Fatalf("nil error has no code")
	}
	if ErrorCode(stderrors.New("plain")) != "" {
		t.Fatalf("plain errors have no code")
	}
}

func TestClonedSentinelMatchesByCode(t *testing.T) {
	err := fmt.Errorf("cron: %w", CloneError(ErrPanic, "panic in job", nil, nil))
	if !HasCode(err, ErrCodePanic) {
		t.Fatalf("expected clone to keep the panic code")
	}
	outer := fmt.Errorf("job: %w", CloneError(ErrCommitFailed, "", err, nil))
	if !HasCode(outer, ErrCodePanic) || !HasCode(outer, ErrCodeCommitFailed) {
		t.Fatalf("expected codes at every level of the chain")
	}
	if !HasCode(stderrors.Join(stderrors.New("a"), err), ErrCodePanic) {
		t.Fatalf("expected joined errors to be searched")
	}
	if stderrors.Is(err, ErrPanic) {
		t.Fatalf("clones are distinct values; compare with HasCode")
	}
}

func TestCloneErrorDefaultsToValidation(t *testing.T) {
	err := CloneError(nil, "", nil, nil)
	if err.TextCode != ErrCodeValidation {
		t.Fatalf("expected validation code, got %s", err.TextCode)
	}
}
