package service

import (
	"fmt"

	"github.com/pkg/errors"
)

// Domain errors surfaced to the API layer
var (
	ErrDealNotActive           = errors.New("deal is not active")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrNotAuthorized           = errors.New("actor is not permitted to perform this operation")
	ErrNoActiveLenderSolicitor = errors.New("deal has no active lender solicitor")
	ErrLenderSolicitorTaken    = errors.New("deal already has an active lender solicitor")
	ErrMSApprovalRequired      = errors.New("monitoring surveyor approval is required first")
	ErrConsultantSideRequired  = errors.New("consultant appointments must state which side they act for")
	ErrReplacementReason       = errors.New("replacing the active lender solicitor requires a reason")
	ErrDrawdownsNotSupported   = errors.New("facility does not support drawdowns")
	ErrThreadNotVisible        = errors.New("thread is not visible to this party")
	ErrSearchUnavailable       = errors.New("audit search requires a configured Elasticsearch cluster")
)

// CriteriaError reports stage criteria that do not hold. The unmet
// descriptions are caller-facing so the blocked party knows what to fix.
type CriteriaError struct {
	Phase string // "entry" or "exit"
	Unmet []string
}

func (e *CriteriaError) Error() string {
	return fmt.Sprintf("%s criteria not met: %v", e.Phase, e.Unmet)
}

// DependencyError reports the uncompleted tasks blocking a completion.
type DependencyError struct {
	Blocking []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("blocked by uncompleted dependencies: %v", e.Blocking)
}
