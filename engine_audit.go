package authkit

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess       = "register_success"
	auditEventRegisterDuplicate     = "register_duplicate"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginSecondFactor     = "login_second_factor_pending"
	auditEventTokenRejected         = "token_rejected"
	auditEventTOTPEnrollStarted     = "totp_enroll_started"
	auditEventTOTPEnrollConfirmed   = "totp_enroll_confirmed"
	auditEventTOTPEnrollExpired     = "totp_enroll_expired"
	auditEventTOTPSuccess           = "totp_success"
	auditEventTOTPFailure           = "totp_failure"
	auditEventSessionTerminated     = "session_terminated"
	auditEventSessionTerminateMiss  = "session_terminate_miss"
)

// AuditErrorCode is the stable error vocabulary carried in
// AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrTOTPConflict       AuditErrorCode = "totp_already_enabled"
	auditErrTOTPNotEnabled     AuditErrorCode = "totp_not_enabled"
	auditErrNoPending          AuditErrorCode = "no_pending_enrollment"
	auditErrEnrollmentExpired  AuditErrorCode = "enrollment_expired"
	auditErrTOTPInvalid        AuditErrorCode = "totp_invalid"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		SessionID: sessionID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrTOTPAlreadyEnabled):
		return auditErrTOTPConflict
	case errors.Is(err, ErrTOTPNotEnabled):
		return auditErrTOTPNotEnabled
	case errors.Is(err, ErrNoPendingEnrollment):
		return auditErrNoPending
	case errors.Is(err, ErrEnrollmentExpired):
		return auditErrEnrollmentExpired
	case errors.Is(err, ErrTOTPCodeInvalid):
		return auditErrTOTPInvalid
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
