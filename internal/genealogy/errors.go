package genealogy

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/lineage/internal/config"
)

// Sentinel errors. Rejections from the eligibility checker arrive wrapped in
// a *RejectedError; everything else is wrapped with fmt.Errorf.
var (
	ErrSelfReference  = errors.New("self reference")
	ErrSexMismatch    = errors.New("sex mismatch")
	ErrCycle          = errors.New("would create cycle")
	ErrIncest         = errors.New("incest violation")
	ErrNotFound       = errors.New("individual not found")
	ErrPropagation    = errors.New("deletion propagation failed")
	ErrInvalidSex     = errors.New("invalid sex")
	ErrSpouseDisabled = errors.New("current spouse feature disabled")
)

// RejectedError describes a refused edge assignment.
type RejectedError struct {
	Subject   string
	Role      Role
	Candidate string
	Reason    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("cannot assign %s as %s of %s: %v", e.Candidate, e.Role, e.Subject, e.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Reason }

func reject(subject string, role Role, candidate string, reason error) error {
	return &RejectedError{Subject: subject, Role: role, Candidate: candidate, Reason: reason}
}

// Stable reason codes.
const (
	CodeSelfReference        = "self_reference_rejected"
	CodeSexMismatch          = "sex_mismatch_rejected"
	CodeCycle                = "cycle_rejected"
	CodeIncest               = "incest_rejected"
	CodeNotFound             = "not_found"
	CodePropagation          = "propagation_failure"
	CodeInvalidSex           = "invalid_sex"
	CodeSpouseDisabled       = "spouse_disabled"
	CodeInvalidConfiguration = "invalid_configuration"
	CodeInternal             = "internal"
)

// codeOrder is checked front to back; propagation comes first because a
// failed propagation may itself wrap a not-found.
var codeOrder = []struct {
	err  error
	code string
}{
	{ErrPropagation, CodePropagation},
	{ErrSelfReference, CodeSelfReference},
	{ErrSexMismatch, CodeSexMismatch},
	{ErrCycle, CodeCycle},
	{ErrIncest, CodeIncest},
	{ErrInvalidSex, CodeInvalidSex},
	{ErrSpouseDisabled, CodeSpouseDisabled},
	{ErrNotFound, CodeNotFound},
	{config.ErrInvalidConfiguration, CodeInvalidConfiguration},
}

// Code maps err to its stable reason code. Nil maps to "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codeOrder {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
