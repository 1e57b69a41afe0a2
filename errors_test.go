package avro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHelpersMatchWrappedErrors(t *testing.T) {
	nameErr := &InvalidNameError{Name: "1bad"}
	assert.True(t, IsInvalidName(nameErr))
	assert.False(t, IsInvalidName(&InvalidDataError{Reason: "x"}))

	schemaErr := &InvalidSchemaError{Reason: "duplicate field"}
	assert.True(t, IsInvalidSchema(schemaErr))

	typeErr := &UnsupportedTypeError{TypeName: "chan int"}
	assert.True(t, IsUnsupportedType(typeErr))

	dataErr := &InvalidDataError{Reason: "truncated"}
	assert.True(t, IsInvalidData(dataErr))
}

func TestAggregateErrorUnwrapsAll(t *testing.T) {
	e1 := &InvalidNameError{Name: "a"}
	e2 := &InvalidSchemaError{Reason: "b"}
	agg := &aggregateError{errs: []error{e1, e2}}

	assert.True(t, errors.Is(agg, e1))
	assert.True(t, errors.Is(agg, e2))
	assert.Contains(t, agg.Error(), "a")
	assert.Contains(t, agg.Error(), "b")
}

func TestUnknownSchemaErrorWrapsReasons(t *testing.T) {
	err := &UnknownSchemaError{Node: `{"type":"bogus"}`, Reasons: []error{
		errors.New("not a record"),
		errors.New("not a primitive"),
	}}
	assert.Contains(t, err.Error(), "2 case(s) declined")
	assert.Contains(t, err.Error(), "not a record")
}
