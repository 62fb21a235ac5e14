package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/ogurasousui/company-registry/internal/core/company"
	"go.uber.org/zap"
)

const (
	errorTypeValidation   = "Validation"
	errorTypeBusinessRule = "BusinessRule"
	errorTypeNotFound     = "NotFound"
	errorTypeBadRequest   = "BadRequest"
	errorTypeInternal     = "Internal"
)

const internalErrorMessage = "An unexpected error occurred."

var (
	// errInvalidBody はリクエストボディが JSON として解釈できない場合のエラーです。
	errInvalidBody = errors.New("invalid request body")
	// errIDMismatch はパスとボディの ID が一致しない場合のエラーです。
	errIDMismatch = errors.New("ID mismatch")
	// errIDRequired は更新対象の ID が指定されていない場合のエラーです。
	errIDRequired = errors.New("id is required")
	// errInvalidPageSize は pageSize クエリが整数でない場合のエラーです。
	errInvalidPageSize = errors.New("pageSize must be an integer")
)

// ErrorResponse は API のエラー応答です。
type ErrorResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	ErrorType string `json:"errorType"`
}

func toErrorResponse(err error) ErrorResponse {
	var (
		vErr *company.ValidationError
		uErr *company.UniqueViolationError
	)

	switch {
	case errors.As(err, &vErr):
		return ErrorResponse{Status: http.StatusBadRequest, Message: vErr.Error(), ErrorType: errorTypeValidation}
	case errors.As(err, &uErr):
		return ErrorResponse{Status: http.StatusBadRequest, Message: uErr.Error(), ErrorType: errorTypeBusinessRule}
	case errors.Is(err, company.ErrCompanyNotFound), errors.Is(err, company.ErrInvalidID):
		return ErrorResponse{Status: http.StatusNotFound, Message: company.ErrCompanyNotFound.Error(), ErrorType: errorTypeNotFound}
	case errors.Is(err, company.ErrInvalidPageSize),
		errors.Is(err, company.ErrInvalidPageToken),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errIDMismatch),
		errors.Is(err, errIDRequired),
		errors.Is(err, errInvalidPageSize):
		return ErrorResponse{Status: http.StatusBadRequest, Message: err.Error(), ErrorType: errorTypeBadRequest}
	default:
		return ErrorResponse{Status: http.StatusInternalServerError, Message: internalErrorMessage, ErrorType: errorTypeInternal}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	resp := toErrorResponse(err)

	fields := []zap.Field{
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", resp.Status),
		zap.Error(err),
	}
	if resp.Status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Warn("request rejected", fields...)
	}

	writeJSON(w, resp.Status, resp)
}
