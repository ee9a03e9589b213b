package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/validation"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error      string            `json:"error"`
	Code       string            `json:"code,omitempty"`
	Dependency string            `json:"dependency,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if domain.IsDependencyError(err) {
		return http.StatusServiceUnavailable
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeEmbedding:
		return http.StatusBadGateway
	case domain.ErrCodeDependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody builds the response body for err. Internal errors are not echoed to clients.
func ErrorBody(err error) ErrorResponse {
	if dep := domain.DependencyOf(err); dep != "" {
		return ErrorResponse{
			Error:      string(dep) + " unavailable",
			Code:       domain.ErrCodeDependencyUnavailable,
			Dependency: string(dep),
		}
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code == domain.ErrCodeInternalError {
		return ErrorResponse{Error: "internal server error", Code: domain.ErrCodeInternalError}
	}

	return ErrorResponse{
		Error:  domainErr.Message,
		Code:   domainErr.Code,
		Fields: validation.Fields(err),
	}
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	JSON(w, DomainErrorToHTTP(err), ErrorBody(err))
}
