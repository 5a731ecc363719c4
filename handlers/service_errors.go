package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/services"
	"github.com/sentinelops/aegisgate/utils"
)

// HandleServiceError maps a service-layer error onto the HTTP response.
// Internal details are logged, never sent to the client.
func HandleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if verr, ok := err.(*utils.ValidationError); ok {
		fields := utils.GetValidationFields(verr)
		details := make(map[string]interface{}, len(fields))
		for field, msg := range fields {
			details[field] = msg
		}
		utils.WriteBadRequest(w, verr.Message, details)
		return
	}

	switch {
	case services.IsValidationError(err):
		utils.WriteBadRequest(w, err.Error(), services.GetErrorDetails(err))
	case services.IsNotFoundError(err):
		utils.WriteNotFound(w, err.Error())
	case services.IsUnauthorizedError(err):
		utils.WriteUnauthorized(w, err.Error())
	case services.IsForbiddenError(err):
		utils.WriteForbidden(w, err.Error())
	case services.IsRateLimitError(err):
		utils.WriteTooManyRequests(w, err.Error(), services.GetErrorDetails(err))
	case services.IsPolicyViolationError(err):
		utils.WritePolicyViolation(w, err.Error(), services.GetErrorDetails(err))
	case services.IsExternalError(err):
		logger.Error("upstream provider error", zap.Error(err))
		utils.WriteBadGateway(w, "")
	default:
		logger.Error("unhandled service error", zap.Error(err))
		utils.WriteInternalServerError(w, "")
	}
}
