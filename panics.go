package integration

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// PanicLogger receives a recovered value and the stack below the panic call.
type PanicLogger func(funcName string, err any, stack []byte, fields ...map[string]any)

// MakePanicHandler returns a function meant to be deferred directly. It
// recovers a panic, reports it to logger and stores an ErrPanic in *errp.
//
//	defer recoverPanic("pipeline.stage", &err)
func MakePanicHandler(logger PanicLogger) func(funcName string, errp *error, fields ...map[string]any) {
	if logger == nil {
		logger = LoggerPanicLogger(nil)
	}
	return func(funcName string, errp *error, fields ...map[string]any) {
		r := recover()
		if r == nil {
			return
		}
		fullStack := make([]byte, 8096)
		n := runtime.Stack(fullStack, false)
		logger(funcName, r, cleanStackTrace(fullStack[:n]), fields...)

		if errp == nil {
			return
		}
		var meta map[string]any
		if len(fields) > 0 {
			meta = fields[0]
		}
		var source error
		if e, ok := r.(error); ok {
			source = e
		}
		*errp = CloneError(ErrPanic, fmt.Sprintf("panic in %s: %v", funcName, r), source, meta)
	}
}

// LoggerPanicLogger writes recovered panics through logger at error level.
func LoggerPanicLogger(logger Logger) PanicLogger {
	logger = NormalizeLogger(logger)
	return func(funcName string, err any, stack []byte, fields ...map[string]any) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "recovered from panic in %s: %v (%T)", funcName, err, err)
		if len(fields) > 0 && fields[0] != nil {
			keys := make([]string, 0, len(fields[0]))
			for k := range fields[0] {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&sb, " %s=%v", k, fields[0][k])
			}
		}
		sb.WriteString("\n")
		sb.Write(stack)
		logger.Error("%s", sb.String())
	}
}

func cleanStackTrace(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")

	panicLineIndex := -1
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			panicLineIndex = i
			break
		}
	}

	// drop the panic() frame and its file line
	if panicLineIndex >= 0 && panicLineIndex+2 < len(lines) {
		lines = lines[panicLineIndex+2:]
	}
	return []byte(strings.Join(lines, "\n"))
}
