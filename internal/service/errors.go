package service

import (
	"errors"
	"fmt"
)

// ValidationKind 校验失败的类别，调用方据此给用户展示不同提示
type ValidationKind string

const (
	KindInsufficientFunds ValidationKind = "INSUFFICIENT_FUNDS"
	KindBelowMinimum      ValidationKind = "BELOW_MINIMUM"
	KindFeatureDisabled   ValidationKind = "FEATURE_DISABLED"
	KindMissingField      ValidationKind = "MISSING_FIELD"
	KindAlreadyJoined     ValidationKind = "ALREADY_JOINED"
	KindMatchFull         ValidationKind = "MATCH_FULL"
	KindMatchCompleted    ValidationKind = "MATCH_COMPLETED"
	KindNotJoined         ValidationKind = "NOT_JOINED"
	KindInvalidArgument   ValidationKind = "INVALID_ARGUMENT"
)

// ValidationError 业务前置条件不满足，返回时不会有任何数据被修改
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(kind ValidationKind, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsValidation 判断 err 是否为指定类别的校验错误
func IsValidation(err error, kind ValidationKind) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == kind
}

var (
	ErrSystemBusy = errors.New("系统繁忙，请稍后重试")
)
