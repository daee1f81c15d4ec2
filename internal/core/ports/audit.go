package ports

import (
	"context"

	"github.com/99minutos/user-accounts/internal/core/domain"
)

// AuditRepository persists account audit events.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuditEvent) error
}

// AuditSink accepts audit events for asynchronous persistence. Implementations
// must not block the caller.
type AuditSink interface {
	Enqueue(event domain.AuditEvent)
}
