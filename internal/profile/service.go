package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"coach_admin_backend/internal/config"
	"coach_admin_backend/internal/platform/metrics"
)

// Service defines the operations behind the admin dashboard.
type Service interface {
	ProvisionCoach(ctx context.Context, req CreateCoachRequest) (*ProvisionResult, error)
	ListProfiles(ctx context.Context) ([]Document, error)
	Stats(ctx context.Context) (*Stats, error)
	FindOrphanedAccounts(ctx context.Context) ([]Account, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo     Repository
	identity IdentityProvider
	cfg      *config.Config
	prom     *metrics.Prom
	logger   *zap.Logger
	now      func() time.Time
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new profile service. prom may be nil.
func NewService(
	repo Repository,
	identity IdentityProvider,
	cfg *config.Config,
	prom *metrics.Prom,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		identity: identity,
		cfg:      cfg,
		prom:     prom,
		logger:   logger.Named("ProfileService"),
		now:      time.Now,
	}
}

// ProvisionCoach creates the identity-provider account and then the coach
// profile keyed by the returned uid. The two calls are never reordered and
// a rejected account writes nothing.
func (s *ServiceImplementation) ProvisionCoach(ctx context.Context, req CreateCoachRequest) (*ProvisionResult, error) {
	start := time.Now()
	uid, err := s.identity.CreateAccount(ctx, req.Email, req.Password, req.Name)
	s.prom.ObserveStoreOp("identity_create", start, err)
	if err != nil {
		s.prom.ObserveProvisioning(metrics.OutcomeIdentityError)
		s.logger.Error("Identity provider rejected coach account",
			zap.String("kind", string(KindIdentityProvider)),
			zap.String("email", req.Email),
			zap.Error(err))
		return nil, &WorkflowError{Kind: KindIdentityProvider, Err: err}
	}

	specialty := req.Specialty
	if strings.TrimSpace(specialty) == "" {
		specialty = s.cfg.DefaultSpecialty
	}
	p := &Profile{
		UID:        uid,
		Email:      req.Email,
		Name:       req.Name,
		Role:       RoleCoach,
		Specialty:  specialty,
		CreatedAt:  FormatTimestamp(s.now()),
		IsVerified: true,
	}

	if err := s.putWithRetry(ctx, p); err != nil {
		return nil, s.handleOrphan(ctx, p, err)
	}

	s.prom.ObserveProvisioning(metrics.OutcomeCreated)
	s.logger.Info("Coach provisioned", zap.String("uid", uid), zap.String("email", req.Email))
	return &ProvisionResult{UID: uid, Profile: p}, nil
}

func (s *ServiceImplementation) putWithRetry(ctx context.Context, p *Profile) error {
	put := func() error {
		start := time.Now()
		err := s.repo.Put(ctx, p)
		s.prom.ObserveStoreOp("profile_put", start, err)
		return err
	}
	if s.cfg.ProfileWriteRetries <= 0 {
		return put()
	}

	exp := backoff.NewExponentialBackOff()
	exp.MaxInterval = s.cfg.ProfileWriteRetryMaxInterval
	exp.InitialInterval = 50 * time.Millisecond
	if exp.MaxInterval > 0 && exp.MaxInterval < exp.InitialInterval {
		exp.InitialInterval = exp.MaxInterval
	}
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.cfg.ProfileWriteRetries)), ctx)

	return backoff.RetryNotify(put, b, func(err error, wait time.Duration) {
		s.logger.Warn("Profile write failed, retrying",
			zap.String("uid", p.UID),
			zap.Duration("backoff", wait),
			zap.Error(err))
	})
}

// handleOrphan applies the orphan policy after the profile write failed for
// an account that already exists, and emits the one error line for the failure.
func (s *ServiceImplementation) handleOrphan(ctx context.Context, p *Profile, writeErr error) *WorkflowError {
	wfErr := &WorkflowError{Kind: KindStoreWrite, UID: p.UID, Err: writeErr}
	fields := []zap.Field{
		zap.String("kind", string(KindStoreWrite)),
		zap.String("uid", p.UID),
		zap.String("email", p.Email),
		zap.String("orphanPolicy", s.cfg.OrphanPolicy),
		zap.Error(writeErr),
	}

	if s.cfg.OrphanPolicy != config.OrphanPolicyDelete {
		s.prom.ObserveProvisioning(metrics.OutcomeStoreWriteError)
		s.logger.Error("Coach account created but profile write failed; account left without profile", fields...)
		return wfErr
	}

	// The request context may already be the reason the write failed.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	start := time.Now()
	delErr := s.identity.DeleteAccount(cleanupCtx, p.UID)
	s.prom.ObserveStoreOp("identity_delete", start, delErr)
	if delErr != nil {
		s.prom.ObserveProvisioning(metrics.OutcomeCompensationFailed)
		s.logger.Error("Coach profile write failed and the account could not be deleted",
			append(fields, zap.NamedError("compensationError", delErr))...)
		return wfErr
	}

	wfErr.Compensated = true
	s.prom.ObserveProvisioning(metrics.OutcomeCompensated)
	s.logger.Error("Coach profile write failed; account deleted", fields...)
	return wfErr
}

// ListProfiles returns the whole profile collection as stored.
func (s *ServiceImplementation) ListProfiles(ctx context.Context) ([]Document, error) {
	docs, err := s.findAll(ctx)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Stats counts the profile collection by role.
func (s *ServiceImplementation) Stats(ctx context.Context) (*Stats, error) {
	docs, err := s.findAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{TotalUsers: len(docs)}
	for _, d := range docs {
		if EffectiveRole(d["role"]) == RoleCoach {
			stats.Coaches++
		}
	}
	stats.Members = stats.TotalUsers - stats.Coaches
	return stats, nil
}

func (s *ServiceImplementation) findAll(ctx context.Context) ([]Document, error) {
	start := time.Now()
	docs, err := s.repo.FindAll(ctx)
	s.prom.ObserveStoreOp("profile_find_all", start, err)
	if err != nil {
		s.logger.Error("Failed to read profile collection",
			zap.String("kind", string(KindStoreRead)),
			zap.Error(err))
		return nil, &WorkflowError{Kind: KindStoreRead, Err: err}
	}
	if docs == nil {
		docs = make([]Document, 0)
	}
	return docs, nil
}

// FindOrphanedAccounts returns identity-provider accounts that have no
// profile. Admin accounts are skipped since they never get one.
// Nothing is deleted.
func (s *ServiceImplementation) FindOrphanedAccounts(ctx context.Context) ([]Account, error) {
	start := time.Now()
	accounts, err := s.identity.ListAccounts(ctx)
	s.prom.ObserveStoreOp("identity_list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list identity provider accounts: %w", err)
	}

	start = time.Now()
	keys, err := s.repo.ListKeys(ctx)
	s.prom.ObserveStoreOp("profile_list_keys", start, err)
	if err != nil {
		return nil, &WorkflowError{Kind: KindStoreRead, Err: err}
	}

	known := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		known[k] = struct{}{}
	}

	orphans := make([]Account, 0)
	for _, acc := range accounts {
		if _, ok := known[acc.UID]; ok {
			continue
		}
		if acc.Admin || s.cfg.IsAdminEmail(acc.Email) {
			continue
		}
		orphans = append(orphans, acc)
	}
	return orphans, nil
}
