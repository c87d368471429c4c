package services

import (
	"context"
	"fmt"

	"github.com/meridianhq/meridian/modules/audit/domain/entities/deletionlog"
	"github.com/meridianhq/meridian/modules/core/domain/aggregates/user"
	"github.com/meridianhq/meridian/modules/core/domain/entities/deletion"
	"github.com/meridianhq/meridian/modules/core/domain/entities/identity"
	"github.com/meridianhq/meridian/modules/core/domain/entities/session"
	"github.com/meridianhq/meridian/pkg/composables"
	"github.com/meridianhq/meridian/pkg/serrors"
)

// ConfirmationPhrase is the literal a caller must type to delete their
// account. Enforced server-side: it is a friction step against accidental
// one-click deletion, not a security boundary.
const ConfirmationPhrase = "DELETE"

var (
	ErrUnauthenticated = serrors.NewError(
		"ACCOUNT_UNAUTHENTICATED", "authentication required", "Account.Unauthenticated")
	ErrInvalidConfirmation = serrors.NewError(
		"ACCOUNT_INVALID_CONFIRMATION", "confirmation string mismatch", "Account.InvalidConfirmation")
	ErrUserNotFound = serrors.NewError(
		"ACCOUNT_USER_NOT_FOUND", "no account record for authenticated user", "Account.UserNotFound")
)

// SelfDeleteRequest carries the caller-supplied inputs. There is
// deliberately no target-user field anywhere on this path: the target is
// always the authenticated caller, which removes parameter-injection
// privilege escalation by construction.
type SelfDeleteRequest struct {
	Reason                       string
	ConfirmationString           string
	SkipExternalIdentityDeletion bool
}

type SelfDeleteResult struct {
	Result  deletion.Result
	Message string
}

// AccountService exposes the only externally invocable deletion operation.
type AccountService struct {
	users    user.Repository
	cascade  *CascadeService
	audit    AuditRecorder
	identity identity.Provider
	sessions session.Store
}

// AuditRecorder is the slice of the audit module the account service needs.
type AuditRecorder interface {
	RecordDeletion(ctx context.Context, log *deletionlog.DeletionLog) error
}

type AccountServiceOptions struct {
	Users    user.Repository
	Cascade  *CascadeService
	Audit    AuditRecorder
	Identity identity.Provider
	Sessions session.Store
}

func NewAccountService(opts AccountServiceOptions) *AccountService {
	return &AccountService{
		users:    opts.Users,
		cascade:  opts.Cascade,
		audit:    opts.Audit,
		identity: opts.Identity,
		sessions: opts.Sessions,
	}
}

// SelfDelete erases the authenticated caller's account. Identity comes
// exclusively from the session in context. Precondition failures
// (authentication, confirmation, account existence) are the only errors
// returned; once the cascade starts, its outcome is reported in the result.
func (s *AccountService) SelfDelete(ctx context.Context, req SelfDeleteRequest) (*SelfDeleteResult, error) {
	caller, err := composables.UseUser(ctx)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if req.ConfirmationString != ConfirmationPhrase {
		return nil, ErrInvalidConfirmation
	}

	exists, err := s.users.Exists(ctx, caller.ID())
	if err != nil {
		return nil, err
	}
	if !exists {
		// An authenticated caller without a backing record is a
		// data-consistency anomaly upstream, not a normal user error.
		if log, ok := composables.TryUseLogger(ctx); ok {
			log.WithField("user_id", caller.ID()).Error("authenticated user has no account record")
		}
		return nil, ErrUserNotFound
	}

	result := s.cascade.Execute(ctx, CascadeOptions{
		TargetUserID:       caller.ID(),
		DeleteStorageFiles: true,
		Initiator:          deletion.InitiatorSelf,
		Reason:             req.Reason,
	})

	s.recordAudit(ctx, caller, req.Reason, result)

	if result.Success {
		s.revokeSessions(ctx, caller)
		if !req.SkipExternalIdentityDeletion {
			s.deleteExternalIdentity(ctx, caller)
		}
	}

	return &SelfDeleteResult{
		Result:  result,
		Message: summarize(result),
	}, nil
}

// recordAudit writes the audit entry for every run, success or failure. An
// audit write failure is logged but does not mask the cascade outcome.
func (s *AccountService) recordAudit(ctx context.Context, caller user.User, reason string, result deletion.Result) {
	entry, err := deletionlog.New(
		caller.TenantID(),
		caller.ID(),
		caller.ID(),
		deletion.InitiatorSelf,
		reason,
		result,
	)
	if err == nil {
		err = s.audit.RecordDeletion(ctx, entry)
	}
	if err != nil {
		if log, ok := composables.TryUseLogger(ctx); ok {
			log.WithError(err).WithField("user_id", caller.ID()).Error("failed to write deletion audit entry")
		}
	}
}

func (s *AccountService) revokeSessions(ctx context.Context, caller user.User) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.DeleteByUser(ctx, caller.ID()); err != nil {
		if log, ok := composables.TryUseLogger(ctx); ok {
			log.WithError(err).WithField("user_id", caller.ID()).Warn("failed to revoke sessions")
		}
	}
}

// deleteExternalIdentity revokes the identity-provider account after the
// cascade completes. Independent of the cascade: a provider failure leaves
// local erasure intact and is retried out of band.
func (s *AccountService) deleteExternalIdentity(ctx context.Context, caller user.User) {
	if s.identity == nil || caller.ExternalID() == "" {
		return
	}
	if err := s.identity.DeleteExternalAccount(ctx, caller.ExternalID()); err != nil {
		if log, ok := composables.TryUseLogger(ctx); ok {
			log.WithError(err).WithField("user_id", caller.ID()).Warn("failed to delete external identity account")
		}
	}
}

func summarize(result deletion.Result) string {
	if !result.Success {
		return fmt.Sprintf(
			"account deletion failed after %d table(s): %s",
			len(result.TablesProcessed), result.ErrorMessage,
		)
	}
	return fmt.Sprintf(
		"deleted %d record(s) and anonymized %d across %d table(s), removed %d file(s) in %dms",
		result.RecordsDeleted,
		result.RecordsAnonymized,
		len(result.TablesProcessed),
		len(result.FilesDeleted),
		result.Duration.Milliseconds(),
	)
}
