//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package errs provides the registry error code type, which contains errcode errmsg.
// Read-path callers only ever see ErrInvalidArgument; the other codes describe
// soft signals (topology miss, not found) or refresh failures (unavailable source).
package errs

import (
	"errors"
	"fmt"
	"io"
)

// Code is the registry return code.
type Code int32

// registry return codes.
const (
	// RetOK means success.
	RetOK Code = 0

	// RetInvalidArgument means the service identifier or a locality descriptor is malformed.
	RetInvalidArgument Code = 1
	// RetNotFound means the identifier was never observed by any directory table.
	RetNotFound Code = 2
	// RetTopologyMiss means the requester ip could not be mapped to a group.
	RetTopologyMiss Code = 3
	// RetUnavailable means the persistence source could not be reached during a refresh.
	RetUnavailable Code = 4
	// RetConfigInvalid means a topology or server configuration was rejected.
	RetConfigInvalid Code = 5

	// RetUnknown is the error code for unspecified errors.
	RetUnknown Code = 999
)

// Err registry error value.
var (
	// ErrOK means success.
	ErrOK error

	// ErrInvalidArgument is returned by the query facade before any lookup happens.
	ErrInvalidArgument = NewFrameError(RetInvalidArgument, "invalid argument")
	// ErrTopologyMiss is returned by the topology index for an unmapped ip.
	ErrTopologyMiss = NewFrameError(RetTopologyMiss, "ip has no group")
	// ErrUnavailable is the refresh error when the source cannot be read.
	ErrUnavailable = NewFrameError(RetUnavailable, "persistence source unavailable")

	// ErrUnknown is an unknown error.
	ErrUnknown = NewFrameError(RetUnknown, "unknown error")
)

// ErrorType is the error code type, including framework error code and business error code.
const (
	ErrorTypeFramework = 1
	ErrorTypeBusiness  = 2
)

func typeDesc(t int) string {
	if t == ErrorTypeFramework {
		return "framework"
	}
	return "business"
}

const (
	// Success is the success prompt string.
	Success = "success"
)

// Error is the error code structure which contains error code type and error message.
type Error struct {
	Type int
	Code Code
	Msg  string

	cause error      // internal error, form the error chain.
	stack stackTrace // call stack, if the error chain already has a stack, it will not be set.
}

// Error implements the error interface and returns the error description.
func (e *Error) Error() string {
	if e == nil {
		return Success
	}
	if e.cause != nil {
		return fmt.Sprintf("type:%s, code:%d, msg:%s, caused by %s",
			typeDesc(e.Type), e.Code, e.Msg, e.cause.Error())
	}
	return fmt.Sprintf("type:%s, code:%d, msg:%s", typeDesc(e.Type), e.Code, e.Msg)
}

// Format implements the fmt.Formatter interface.
func (e *Error) Format(s fmt.State, verb rune) {
	var stackTrace stackTrace
	defer func() {
		if stackTrace != nil {
			stackTrace.Format(s, verb)
		}
	}()
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "type:%s, code:%d, msg:%s", typeDesc(e.Type), e.Code, e.Msg)
			if e.stack != nil {
				stackTrace = e.stack
			}
			if e.Unwrap() != nil {
				_, _ = fmt.Fprintf(s, "\nCause by %+v", e.Unwrap())
			}
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	default:
		_, _ = fmt.Fprintf(s, "%%!%c(errs.Error=%s)", verb, e.Error())
	}
}

// Unwrap support Go 1.13+ error chains.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same type and code,
// so that a wrapped ErrUnavailable still matches errors.Is(err, ErrUnavailable).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// New creates an error, which defaults to the business error type.
func New(code Code, msg string) error {
	err := &Error{
		Type: ErrorTypeBusiness,
		Code: code,
		Msg:  msg,
	}
	if traceable {
		err.stack = callers()
	}
	return err
}

// Newf creates an error, the default is the business error type, msg supports format strings.
func Newf(code Code, format string, params ...interface{}) error {
	err := &Error{
		Type: ErrorTypeBusiness,
		Code: code,
		Msg:  fmt.Sprintf(format, params...),
	}
	if traceable {
		err.stack = callers()
	}
	return err
}

// NewFrameError creates a frame error.
func NewFrameError(code Code, msg string) error {
	err := &Error{
		Type: ErrorTypeFramework,
		Code: code,
		Msg:  msg,
	}
	if traceable {
		err.stack = callers()
	}
	return err
}

// Wrap creates a new frame error contains input error.
// only add stack when traceable is true and the input type is not Error, this will ensure that there is no multiple
// stacks in the error chain.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	wrapErr := &Error{
		Type:  ErrorTypeFramework,
		Code:  code,
		Msg:   msg,
		cause: err,
	}
	var e *Error
	// the error chain does not contain item which type is Error, add stack.
	if traceable && !errors.As(err, &e) {
		wrapErr.stack = callers()
	}
	return wrapErr
}

// Wrapf the same as Wrap, msg supports format strings.
func Wrapf(err error, code Code, format string, params ...interface{}) error {
	if err == nil {
		return nil
	}
	wrapErr := &Error{
		Type:  ErrorTypeFramework,
		Code:  code,
		Msg:   fmt.Sprintf(format, params...),
		cause: err,
	}
	var e *Error
	if traceable && !errors.As(err, &e) {
		wrapErr.stack = callers()
	}
	return wrapErr
}

// CodeOf gets the error code through error.
func CodeOf(e error) Code {
	if e == nil {
		return RetOK
	}
	// Doing type assertion first has a slight performance boost over just using errors.As
	// because of avoiding reflect when the assertion is probably true.
	err, ok := e.(*Error)
	if !ok && !errors.As(e, &err) {
		return RetUnknown
	}
	if err == nil {
		return RetOK
	}
	return err.Code
}

// Msg gets error msg through error.
func Msg(e error) string {
	if e == nil {
		return Success
	}
	err, ok := e.(*Error)
	if !ok && !errors.As(e, &err) {
		return e.Error()
	}
	if err == (*Error)(nil) {
		return Success
	}
	// For cases of error chains, err.Error() will print the entire chain,
	// including the current error and the nested error messages, in an appropriate format.
	if err.Unwrap() != nil {
		return err.Error()
	}
	return err.Msg
}

// String returns the short name of the code, used as a metric and audit label.
func (c Code) String() string {
	switch c {
	case RetOK:
		return "ok"
	case RetInvalidArgument:
		return "invalid_argument"
	case RetNotFound:
		return "not_found"
	case RetTopologyMiss:
		return "topology_miss"
	case RetUnavailable:
		return "unavailable"
	case RetConfigInvalid:
		return "config_invalid"
	default:
		return "unknown"
	}
}
