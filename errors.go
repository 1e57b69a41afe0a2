package avro

import (
	"errors"
	"fmt"
)

// InvalidNameError reports an identifier or full-name that does not match
// the Avro name grammar ([A-Za-z_][A-Za-z0-9_]*, dot-separated for namespaces).
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("avro: invalid name %q", e.Name)
}

// InvalidSymbolError reports an enum symbol that is not a valid identifier.
type InvalidSymbolError struct {
	Symbol string
}

func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("avro: invalid enum symbol %q", e.Symbol)
}

// InvalidSchemaError reports a schema that violates a structural constraint:
// duplicate field/symbol names, union rule violations, a decimal logical type
// without a precision, or a name conflict detected while reading or writing.
// A logical type over a base it does not apply to is not an error: the
// reader keeps the plain base schema.
type InvalidSchemaError struct {
	Reason string
}

func (e *InvalidSchemaError) Error() string {
	return fmt.Sprintf("avro: invalid schema: %s", e.Reason)
}

// UnknownSchemaError reports a JSON value that no reader case could match.
// It wraps the reasons each case gave for declining the node.
type UnknownSchemaError struct {
	Node    string
	Reasons []error
}

func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("avro: unknown schema %s (%d case(s) declined): %s", e.Node, len(e.Reasons), joinErrors(e.Reasons))
}

func (e *UnknownSchemaError) Unwrap() []error { return e.Reasons }

// UnsupportedSchemaError reports a well-formed schema that no writer or
// codec-builder case could handle.
type UnsupportedSchemaError struct {
	Schema Schema
}

func (e *UnsupportedSchemaError) Error() string {
	return fmt.Sprintf("avro: unsupported schema %s", GetFullName(e.Schema))
}

// UnsupportedTypeError reports a host type the Type Resolver could not
// describe, or a resolution incompatible with the target schema.
type UnsupportedTypeError struct {
	TypeName string
	Reason   string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("avro: unsupported type %s", e.TypeName)
	}
	return fmt.Sprintf("avro: unsupported type %s: %s", e.TypeName, e.Reason)
}

// InvalidDataError reports a binary stream that violates the schema:
// truncation, an out-of-range union/enum index, a non-UTF-8 string, or a
// wire-format header mismatch.
type InvalidDataError struct {
	Reason string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("avro: invalid data: %s", e.Reason)
}

// aggregateError collects the per-case errors a dispatcher accumulated
// before raising. It implements Unwrap() []error for errors.Is/As.
type aggregateError struct {
	errs []error
}

func (e *aggregateError) Error() string {
	return joinErrors(e.errs)
}

func (e *aggregateError) Unwrap() []error { return e.errs }

func joinErrors(errs []error) string {
	switch len(errs) {
	case 0:
		return "no reasons given"
	case 1:
		return errs[0].Error()
	default:
		msg := errs[0].Error()
		for _, e := range errs[1:] {
			msg += "; " + e.Error()
		}
		return msg
	}
}

// Is* helpers let callers match against a taxonomy concept regardless of
// which concrete wrapped error carries it.

func IsInvalidName(err error) bool {
	var e *InvalidNameError
	return errors.As(err, &e)
}

func IsInvalidSchema(err error) bool {
	var e *InvalidSchemaError
	return errors.As(err, &e)
}

func IsUnsupportedType(err error) bool {
	var e *UnsupportedTypeError
	return errors.As(err, &e)
}

func IsInvalidData(err error) bool {
	var e *InvalidDataError
	return errors.As(err, &e)
}
