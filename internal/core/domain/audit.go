package domain

import "time"

// AuditAction names an account lifecycle event.
type AuditAction string

const (
	AuditUserRegistered  AuditAction = "user.registered"
	AuditUserLogin       AuditAction = "user.login"
	AuditUserLoginFailed AuditAction = "user.login_failed"
	AuditUserUpdated     AuditAction = "user.updated"
	AuditUserDeleted     AuditAction = "user.deleted"
)

// AuditEvent records who did what to which account.
type AuditEvent struct {
	Action   AuditAction
	ActorID  string // empty for anonymous actions (register, login)
	TargetID string
	Username string
	At       time.Time
}
