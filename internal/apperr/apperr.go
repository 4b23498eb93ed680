// Package apperr 定义业务错误分类，handler 通过 response.Error 映射为 HTTP 状态码
package apperr

import (
	"errors"
	"net/http"
)

// Kind 错误分类
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExternal:
		return "external"
	default:
		return "internal"
	}
}

// Error 带分类的业务错误
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
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

// Validation 参数错误，fields 为字段级错误
func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// Field 单字段参数错误
func Field(field, msg string) *Error {
	return Validation("validation failed", map[string]string{field: msg})
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Forbidden 无权限，对外统一使用 "not authorized"
func Forbidden() *Error {
	return &Error{Kind: KindForbidden, Message: "not authorized"}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// External 外部依赖失败
func External(msg string, err error) *Error {
	return &Error{Kind: KindExternal, Message: msg, Err: err}
}

// Internal 内部错误，cause 只记录日志不对外返回
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf 取错误分类，非 *Error 视为内部错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is 判断错误是否属于某个分类
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status 错误分类对应的 HTTP 状态码
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
