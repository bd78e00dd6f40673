package goSession

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLogout               = "logout"
	auditEventRemoteLogoutFailed   = "remote_logout_failed"
	auditEventTokenValidated       = "token_validated"
	auditEventTokenRejected        = "token_rejected"
	auditEventTokenValidationError = "token_validation_error"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrCredentialsRequired AuditErrorCode = "credentials_required"
	auditErrInvalidEmail        AuditErrorCode = "invalid_email"
	auditErrRejected            AuditErrorCode = "rejected"
	auditErrCredentials         AuditErrorCode = "credentials_incorrect"
	auditErrServiceUnavailable  AuditErrorCode = "service_unavailable"
	auditErrServer              AuditErrorCode = "server_error"
	auditErrConnection          AuditErrorCode = "connection_error"
	auditErrValidation          AuditErrorCode = "validation_unavailable"
	auditErrStorage             AuditErrorCode = "storage_error"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
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
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
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
	case errors.Is(err, ErrCredentialsRequired):
		return auditErrCredentialsRequired
	case errors.Is(err, ErrInvalidEmailFormat):
		return auditErrInvalidEmail
	case errors.Is(err, ErrLoginRejected):
		return auditErrRejected
	case errors.Is(err, ErrCredentialsIncorrect):
		return auditErrCredentials
	case errors.Is(err, ErrServiceUnavailable):
		return auditErrServiceUnavailable
	case errors.Is(err, ErrServerError):
		return auditErrServer
	case errors.Is(err, ErrStorage):
		return auditErrStorage
	case errors.Is(err, ErrValidationUnavailable):
		return auditErrValidation
	case errors.Is(err, ErrConnection):
		return auditErrConnection
	default:
		return auditErrInternal
	}
}
