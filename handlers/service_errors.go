package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/grounded-qa/services"
	"github.com/upb/grounded-qa/utils"
	"go.uber.org/zap"
)

// statusForError maps a domain error type to its HTTP status
func statusForError(err error) int {
	switch services.GetErrorType(err) {
	case services.ErrorTypeValidation:
		return http.StatusBadRequest
	case services.ErrorTypeNotFound:
		return http.StatusNotFound
	case services.ErrorTypeConflict:
		return http.StatusConflict
	case services.ErrorTypeRefused:
		return http.StatusUnprocessableEntity
	case services.ErrorTypeExternal:
		return http.StatusBadGateway
	case services.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError maps domain errors to HTTP responses. Internal and
// unknown errors are logged and answered with a generic message.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	status := statusForError(err)
	message := err.Error()
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}
	if status == http.StatusInternalServerError {
		logger.Error("internal server error",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		message = "An internal error occurred"
	} else {
		logger.Debug("handled service error",
			zap.Int("status", status),
			zap.String("code", services.GetErrorCode(err)),
			zap.Error(err))
	}

	var details map[string]interface{}
	if status != http.StatusInternalServerError {
		details = services.GetErrorDetails(err)
		if len(details) == 0 {
			details = nil
		}
	}

	if werr := utils.WriteError(w, status, services.GetErrorCode(err), message, details); werr != nil {
		logger.Error("failed to write error response", zap.Error(werr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
