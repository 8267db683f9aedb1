package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/logger"
)

// Actor identifies who triggered a state change, for audit purposes.
type Actor struct {
	UserID    string
	Email     string
	IPAddress string
	UserAgent string
}

func (a Actor) userIDPtr() *string {
	id := strings.TrimSpace(a.UserID)
	if id == "" {
		return nil
	}
	return &id
}

func (a Actor) name() string {
	if a.Email != "" {
		return a.Email
	}
	return "anonymous"
}

func (a Actor) entry(action, resource, result string, metadata map[string]any) AuditEntry {
	return AuditEntry{
		UserID:    a.userIDPtr(),
		Actor:     a.name(),
		Action:    action,
		Resource:  resource,
		Result:    result,
		IPAddress: a.IPAddress,
		UserAgent: a.UserAgent,
		Metadata:  metadata,
	}
}

// recordAudit logs the supplied entry while tolerating audit failures.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
