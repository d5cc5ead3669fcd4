package aml

import (
	"bytes"
	"fmt"
)

// frame records the location within a method where an error surfaced: the
// method name, the byte offset into its AML, and the statement being
// evaluated.
type frame struct {
	method    string
	offset    uint32
	statement string
}

// Error describes errors that occur while executing AML code.
type Error struct {
	message string

	// trace contains a list of trace entries that correspond to the AML
	// method invocations up to the point where an error occurred. To
	// construct the correct execution tree from a trace, its entries must
	// be processed in LIFO order.
	trace []*frame
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.message
}

// StackTrace returns a formatted stack trace for this error.
func (e *Error) StackTrace() string {
	if len(e.trace) == 0 {
		return "No stack trace available"
	}

	var buf bytes.Buffer
	buf.WriteString("Stack trace:\n")

	// We need to process the trace list in LIFO order.
	for index, offset := 0, len(e.trace)-1; index < len(e.trace); index, offset = index+1, offset-1 {
		entry := e.trace[offset]
		fmt.Fprintf(&buf, "[%3x] [%s():0x%x] statement: %s\n", index, entry.method, entry.offset, entry.statement)
	}

	return buf.String()
}

var (
	// errMoreProcessing is the internal control-flow status an evaluator
	// returns when it needs another child statement before it can reduce.
	// It never escapes the execution driver.
	errMoreProcessing = &Error{message: "aml: more processing required"}

	errInsufficientResources = &Error{message: "aml: insufficient resources"}
	errMalformedStream       = &Error{message: "aml: malformed data stream"}
	errArgumentExpected      = &Error{message: "aml: statement argument expected but no reduction was produced"}
	errConversionFailed      = &Error{message: "aml: implicit type conversion failed"}
	errUnexpectedType        = &Error{message: "aml: unexpected object type"}
	errNotFound              = &Error{message: "aml: object not found"}
	errPathNotFound          = &Error{message: "aml: namespace path not found"}
	errDivideByZero          = &Error{message: "aml: division by zero"}
	errOutOfBounds           = &Error{message: "aml: access beyond the declared extents"}
	errBufferTooSmall        = &Error{message: "aml: source buffer smaller than the field being written"}
	errDataLengthMismatch    = &Error{message: "aml: definition block length does not match its payload"}
	errChecksumMismatch      = &Error{message: "aml: definition block checksum mismatch"}
	errNotSupported          = &Error{message: "aml: operation not supported"}

	// errTooEarly is returned by region handlers whose backing is not yet
	// usable; the field reader substitutes zeros and reports success.
	errTooEarly = &Error{message: "aml: operation region backing not yet available"}
)

// tracedError attaches a stack frame describing the current execution
// position to the given error, allocating a fresh Error when the underlying
// value is a shared sentinel.
func (ctx *execContext) tracedError(err error, statement string) error {
	amlErr, ok := err.(*Error)
	if !ok {
		amlErr = &Error{message: err.Error()}
	} else if amlErr.trace == nil {
		// Shared sentinels must not accumulate trace entries; clone on
		// first use.
		amlErr = &Error{message: amlErr.message}
	}

	methodName := ""
	if ctx.currentMethod != nil && ctx.currentMethod.method != nil {
		methodName = unpackName(ctx.currentMethod.method.Name)
	}

	amlErr.trace = append(amlErr.trace, &frame{
		method:    methodName,
		offset:    uint32(ctx.offset),
		statement: statement,
	})

	return amlErr
}
