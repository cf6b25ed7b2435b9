package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/internal/repository"
	"github.com/BuildFund/New-Main-sub000/internal/service"
	"github.com/BuildFund/New-Main-sub000/internal/workflow"
)

// ErrorResponse is the error body returned by every handler
type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// respondError translates domain errors into HTTP responses. Unmet
// criteria and blocked dependencies are client-actionable, so their
// details go out in the body.
func respondError(c *gin.Context, err error) {
	var criteriaErr *service.CriteriaError
	if errors.As(err, &criteriaErr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "stage criteria not met",
			Code:    "CRITERIA_NOT_MET",
			Details: gin.H{"phase": criteriaErr.Phase, "unmet": criteriaErr.Unmet},
		})
		return
	}

	var depErr *service.DependencyError
	if errors.As(err, &depErr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "task has uncompleted dependencies",
			Code:    "DEPENDENCIES_UNMET",
			Details: gin.H{"blocking": depErr.Blocking},
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Resource not found", Code: "NOT_FOUND"})
	case errors.Is(err, repository.ErrDuplicateKey):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Resource already exists", Code: "CONFLICT"})
	case errors.Is(err, service.ErrNotAuthorized), errors.Is(err, service.ErrThreadNotVisible):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: err.Error(), Code: "FORBIDDEN"})
	case errors.Is(err, service.ErrDealNotActive),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrMSApprovalRequired),
		errors.Is(err, service.ErrNoActiveLenderSolicitor),
		errors.Is(err, service.ErrLenderSolicitorTaken),
		errors.Is(err, service.ErrDrawdownsNotSupported),
		errors.Is(err, workflow.ErrDependencyCycle):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error(), Code: "CONFLICT"})
	case errors.Is(err, service.ErrConsultantSideRequired),
		errors.Is(err, service.ErrReplacementReason):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error(), Code: "VALIDATION_ERROR"})
	case errors.Is(err, service.ErrSearchUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: err.Error(), Code: "SEARCH_UNAVAILABLE"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error", Code: "INTERNAL_ERROR"})
	}
}

// respondBadRequest reports a malformed request body or parameter
func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error(), Code: "INVALID_REQUEST"})
}
