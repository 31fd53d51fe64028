package integration

import (
	"bytes"
	"strings"
	"testing"
)

func panicky(handler func(string, *error, ...map[string]any)) (err error) {
	defer handler("panicky", &err, map[string]any{"stage": "sync"})
	panic("boom")
}

func TestMakePanicHandlerConvertsPanic(t *testing.T) {
	var gotFunc string
	var gotValue any
	handler := MakePanicHandler(func(funcName string, err any, stack []byte, fields ...map[string]any) {
		gotFunc = funcName
		gotValue = err
	})

	err := panicky(handler)
	if !HasCode(err, ErrCodePanic) {
		t.Fatalf("expected panic code, got %v", err)
	}
	if !strings.Contains(err.Error(), "panic in panicky: boom") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if gotFunc != "panicky" || gotValue != "boom" {
		t.Fatalf("logger got %q %v", gotFunc, gotValue)
	}
}

func TestMakePanicHandlerNoPanic(t *testing.T) {
	called := false
	handler := MakePanicHandler(func(string, any, []byte, ...map[string]any) { called = true })

	err := func() (err error) {
		defer handler("quiet", &err)
		return nil
	}()
	if err != nil || called {
		t.Fatalf("expected no error and no log, got %v called=%v", err, called)
	}
}

func TestLoggerPanicLoggerWritesSortedFields(t *testing.T) {
	var buf bytes.Buffer
	log := LoggerPanicLogger(NewFmtLogger(&buf))
	log("commit", "bad", []byte("stack"), map[string]any{"b": 2, "a": 1})

	out := buf.String()
	if !strings.Contains(out, "recovered from panic in commit: bad (string) a=1 b=2") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "stack") {
		t.Fatalf("stack missing from %q", out)
	}
}
