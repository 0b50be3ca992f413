package core

import "context"

// InputAdapter loads input items for batch processing.
type InputAdapter[In any] interface {
	Load(ctx context.Context) ([]In, error)
}

// OutputAdapter persists records produced by batch processing.
type OutputAdapter[Out any] interface {
	Store(ctx context.Context, rows []Out) error
}

// Value is a raw parameter value as supplied by the host. Absent values are nil.
type Value = any

// FieldResolver returns the value of a named parameter for the item at index.
//
// Implementations return (nil, nil) when the parameter is simply not set; an error
// means the lookup itself failed and is reported against that item.
type FieldResolver interface {
	Field(name string, index int) (Value, error)
}

// FieldResolverFunc adapts a function to the FieldResolver interface.
type FieldResolverFunc func(name string, index int) (Value, error)

func (f FieldResolverFunc) Field(name string, index int) (Value, error) {
	return f(name, index)
}
