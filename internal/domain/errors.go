package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies workflow failures so the transport layer can map
// them to its own status codes without inspecting messages.
type ErrorKind string

const (
	ErrKindRemoteValidation ErrorKind = "remote_validation"
	ErrKindUnknownProduct   ErrorKind = "unknown_product"
	ErrKindNotFound         ErrorKind = "not_found"
	ErrKindStorage          ErrorKind = "storage"
)

// Error is the structured failure every workflow operation returns. The
// original cause is preserved for diagnostics.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewRemoteValidationError(err error) *Error {
	return &Error{Kind: ErrKindRemoteValidation, Message: "product validation failed", Err: err}
}

func NewUnknownProductError(productID string) *Error {
	return &Error{Kind: ErrKindUnknownProduct, Message: fmt.Sprintf("product %s not found in catalog", productID)}
}

func NewNotFoundError(orderID string) *Error {
	return &Error{Kind: ErrKindNotFound, Message: fmt.Sprintf("order with id %s not found", orderID)}
}

func NewStorageError(err error) *Error {
	return &Error{Kind: ErrKindStorage, Message: "storage failure", Err: err}
}

// KindOf returns the error's kind, or ErrKindStorage for anything that is
// not a *Error so unclassified failures surface as internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindStorage
}
