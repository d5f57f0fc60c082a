package service

import (
	"context"
	"time"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/rs/zerolog"
)

const auditWriteTimeout = 5 * time.Second

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService records wallet, merchant, item and purchase mutations.
// With a nil repo entries only reach the log.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records entry in the background. The write outlives the request but
// not auditWriteTimeout.
func (s *auditService) Log(ctx context.Context, entry *domain.AuditLog) {
	go func() {
		ev := s.log.Info().
			Str("action", string(entry.Action)).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID).
			Str("ip", entry.IPAddress)
		if entry.UserID != nil {
			ev = ev.Int64("user_id", *entry.UserID)
		}
		ev.Msg("audit")

		if s.repo != nil {
			writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
			defer cancel()
			if err := s.repo.Create(writeCtx, entry); err != nil {
				s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
			}
		}
	}()
}
