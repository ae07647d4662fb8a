package mturk

import (
	"errors"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
)

const ErrCodeParameterValidation = "ParameterValidationError"

var ErrNoSubmission = errors.New("no submission found for task")

// IsParameterValidation reports whether err was caused by invalid request
// parameters, either rejected by the service or by client side validation.
func IsParameterValidation(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case ErrCodeParameterValidation, request.InvalidParameterErrCode, request.ParamRequiredErrCode,
		request.ParamMinValueErrCode, request.ParamMinLenErrCode, request.ParamMaxLenErrCode:
		return true
	}
	return false
}
