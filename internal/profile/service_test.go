package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"coach_admin_backend/internal/config"
	"coach_admin_backend/internal/platform/metrics"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.UTC)

type serviceFixture struct {
	svc      *ServiceImplementation
	identity *fakeIdentity
	repo     *memoryRepository
	prom     *metrics.Prom
	logs     *observer.ObservedLogs
	cfg      *config.Config
}

func newServiceFixture(t *testing.T, mutate func(cfg *config.Config)) *serviceFixture {
	t.Helper()
	cfg := &config.Config{
		DefaultSpecialty:             "General Recovery",
		OrphanPolicy:                 config.OrphanPolicyReport,
		ProfileWriteRetryMaxInterval: time.Millisecond,
		AdminEmails:                  []string{"root@example.com"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	core, logs := observer.New(zapcore.InfoLevel)
	f := &serviceFixture{
		identity: newFakeIdentity(),
		repo:     newMemoryRepository(),
		prom:     metrics.NewProm(),
		logs:     logs,
		cfg:      cfg,
	}
	f.svc = NewService(f.repo, f.identity, cfg, f.prom, zap.New(core))
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *serviceFixture) errorLogs() int {
	return f.logs.FilterLevelExact(zapcore.ErrorLevel).Len()
}

func TestProvisionCoach_Success(t *testing.T) {
	f := newServiceFixture(t, nil)

	res, err := f.svc.ProvisionCoach(context.Background(), CreateCoachRequest{
		Email:     "jane@x.com",
		Password:  "secret12",
		Name:      "Jane",
		Specialty: "Grief",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.UID)
	assert.True(t, f.identity.has(res.UID))

	docs, err := f.repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, Document{
		"uid":        res.UID,
		"email":      "jane@x.com",
		"name":       "Jane",
		"role":       "coach",
		"specialty":  "Grief",
		"createdAt":  "2024-03-09T14:05:07.123Z",
		"isVerified": true,
	}, docs[0])
	assert.Equal(t, float64(1), testutil.ToFloat64(f.prom.ProvisioningTotal.WithLabelValues(metrics.OutcomeCreated)))
	assert.Zero(t, f.errorLogs())
}

func TestProvisionCoach_BlankSpecialtyUsesDefault(t *testing.T) {
	f := newServiceFixture(t, nil)

	for _, specialty := range []string{"", "   "} {
		res, err := f.svc.ProvisionCoach(context.Background(), CreateCoachRequest{
			Email:     "coach" + specialty + "@x.com",
			Password:  "secret12",
			Name:      "Coach",
			Specialty: specialty,
		})
		require.NoError(t, err)
		assert.Equal(t, "General Recovery", res.Profile.Specialty)
	}
}

func TestProvisionCoach_IdentityProviderRejects(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateCoachRequest
		wantMsg string
	}{
		{
			name:    "short password",
			req:     CreateCoachRequest{Email: "a@b.com", Password: "123", Name: "A"},
			wantMsg: "The password must be a string with at least 6 characters.",
		},
		{
			name:    "malformed email",
			req:     CreateCoachRequest{Email: "not-an-email", Password: "secret12", Name: "A"},
			wantMsg: "The email address is improperly formatted.",
		},
		{
			name:    "empty form",
			req:     CreateCoachRequest{},
			wantMsg: "The email address is improperly formatted.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, nil)

			res, err := f.svc.ProvisionCoach(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.wantMsg, err.Error())

			wfErr, ok := AsWorkflowError(err)
			require.True(t, ok)
			assert.Equal(t, KindIdentityProvider, wfErr.Kind)
			assert.False(t, wfErr.AccountCreated())
			assert.False(t, wfErr.Orphaned())

			assert.Zero(t, f.repo.putCalls, "no profile write after a rejected account")
			assert.Equal(t, 1, f.errorLogs())
		})
	}
}

func TestProvisionCoach_DuplicateEmail(t *testing.T) {
	f := newServiceFixture(t, nil)
	req := CreateCoachRequest{Email: "dup@x.com", Password: "secret12", Name: "Dup"}

	_, err := f.svc.ProvisionCoach(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.ProvisionCoach(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "The email address is already in use by another account.", err.Error())

	docs, err := f.svc.ListProfiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestProvisionCoach_StoreWriteFailureReportsOrphan(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.repo.putErrs = []error{errors.New("PERMISSION_DENIED: Missing or insufficient permissions.")}

	_, err := f.svc.ProvisionCoach(context.Background(), CreateCoachRequest{
		Email: "orphan@x.com", Password: "secret12", Name: "Orphan",
	})
	require.Error(t, err)
	assert.Equal(t, "PERMISSION_DENIED: Missing or insufficient permissions.", err.Error())

	wfErr, ok := AsWorkflowError(err)
	require.True(t, ok)
	assert.Equal(t, KindStoreWrite, wfErr.Kind)
	assert.True(t, wfErr.AccountCreated())
	assert.True(t, wfErr.Orphaned())
	assert.True(t, f.identity.has(wfErr.UID), "the account persists without a profile")
	assert.Equal(t, 1, f.repo.putCalls)

	require.Equal(t, 1, f.errorLogs())
	entry := f.logs.FilterLevelExact(zapcore.ErrorLevel).All()[0]
	assert.Equal(t, wfErr.UID, entry.ContextMap()["uid"])
	assert.Equal(t, float64(1), testutil.ToFloat64(f.prom.ProvisioningTotal.WithLabelValues(metrics.OutcomeStoreWriteError)))
}

func TestProvisionCoach_StoreWriteFailureDeletePolicy(t *testing.T) {
	f := newServiceFixture(t, func(cfg *config.Config) { cfg.OrphanPolicy = config.OrphanPolicyDelete })
	f.repo.putErrs = []error{errors.New("deadline exceeded")}

	_, err := f.svc.ProvisionCoach(context.Background(), CreateCoachRequest{
		Email: "gone@x.com", Password: "secret12", Name: "Gone",
	})
	require.Error(t, err)
	assert.Equal(t, "deadline exceeded", err.Error())

	wfErr, ok := AsWorkflowError(err)
	require.True(t, ok)
	assert.True(t, wfErr.Compensated)
	assert.False(t, wfErr.Orphaned())
	assert.False(t, f.identity.has(wfErr.UID))
	assert.Equal(t, []string{wfErr.UID}, f.identity.deleted)
	assert.Equal(t, 1, f.errorLogs())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.prom.ProvisioningTotal.WithLabelValues(metrics.OutcomeCompensated)))
}

func TestProvisionCoach_CompensationFailure(t *testing.T) {
	f := newServiceFixture(t, func(cfg *config.Config) { cfg.OrphanPolicy = config.OrphanPolicyDelete })
	f.repo.putErrs = []error{errors.New("write failed")}
	f.identity.deleteErr = errors.New("delete failed")

	_, err := f.svc.ProvisionCoach(context.Background(), CreateCoachRequest{
		Email: "stuck@x.com", Password: "secret12", Name: "Stuck",
	})
	require.Error(t, err)
	assert.Equal(t, "write failed", err.Error())

	wfErr, ok := AsWorkflowError(err)
	require.True(t, ok)
	assert.False(t, wfErr.Compensated)
	assert.True(t, wfErr.Orphaned())
	assert.True(t, f.identity.has(wfErr.UID))
	assert.Equal(t, 1, f.errorLogs())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.prom.ProvisioningTotal.WithLabelValues(metrics.OutcomeCompensationFailed)))
}

func TestProvisionCoach_RetriesProfileWrite(t *testing.T) {
	f := newServiceFixture(t, func(cfg *config.Config) { cfg.ProfileWriteRetries = 2 })
	f.repo.putErrs = []error{errors.New("unavailable"), errors.New("unavailable")}

	res, err := f.svc.ProvisionCoach(context.Background(), CreateCoachRequest{
		Email: "retry@x.com", Password: "secret12", Name: "Retry",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, f.repo.putCalls)
	assert.True(t, f.identity.has(res.UID))
	assert.Zero(t, f.errorLogs())
}

func TestProvisionCoach_RetriesExhausted(t *testing.T) {
	f := newServiceFixture(t, func(cfg *config.Config) { cfg.ProfileWriteRetries = 1 })
	f.repo.putErrs = []error{errors.New("first"), errors.New("second"), errors.New("third")}

	_, err := f.svc.ProvisionCoach(context.Background(), CreateCoachRequest{
		Email: "tired@x.com", Password: "secret12", Name: "Tired",
	})
	require.Error(t, err)
	assert.Equal(t, "second", err.Error())
	assert.Equal(t, 2, f.repo.putCalls)
}

func TestProvisionCoach_SingleWriteByDefault(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.repo.putErrs = []error{errors.New("unavailable")}

	_, err := f.svc.ProvisionCoach(context.Background(), CreateCoachRequest{
		Email: "once@x.com", Password: "secret12", Name: "Once",
	})
	require.Error(t, err)
	assert.Equal(t, 1, f.repo.putCalls)
}

func TestListProfiles(t *testing.T) {
	t.Run("empty collection is an empty list", func(t *testing.T) {
		f := newServiceFixture(t, nil)

		docs, err := f.svc.ListProfiles(context.Background())
		require.NoError(t, err)
		require.NotNil(t, docs)
		assert.Empty(t, docs)
	})

	t.Run("records are returned verbatim", func(t *testing.T) {
		f := newServiceFixture(t, nil)
		legacy := Document{"email": "old@x.com", "name": "Old", "extra": float64(7)}
		f.repo.seed("legacy-key", legacy)

		res, err := f.svc.ProvisionCoach(context.Background(), CreateCoachRequest{
			Email: "new@x.com", Password: "secret12", Name: "New",
		})
		require.NoError(t, err)

		docs, err := f.svc.ListProfiles(context.Background())
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, legacy, docs[0])
		assert.Equal(t, res.UID, docs[1]["uid"])
	})

	t.Run("read failure", func(t *testing.T) {
		f := newServiceFixture(t, nil)
		f.repo.findErr = errors.New("UNAVAILABLE: connection reset")

		docs, err := f.svc.ListProfiles(context.Background())
		require.Error(t, err)
		assert.Nil(t, docs)
		assert.Equal(t, "UNAVAILABLE: connection reset", err.Error())

		wfErr, ok := AsWorkflowError(err)
		require.True(t, ok)
		assert.Equal(t, KindStoreRead, wfErr.Kind)
		assert.Equal(t, 1, f.errorLogs())
	})
}

func TestStats(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.repo.seed("m1", Document{"uid": "m1", "role": "member"})
	f.repo.seed("m2", Document{"uid": "m2"})
	f.repo.seed("m3", Document{"uid": "m3", "role": "superhero"})
	f.repo.seed("m4", Document{"uid": "m4", "role": "Coach"})
	f.repo.seed("c1", Document{"uid": "c1", "role": "coach"})
	_, err := f.svc.ProvisionCoach(context.Background(), CreateCoachRequest{
		Email: "c2@x.com", Password: "secret12", Name: "C2",
	})
	require.NoError(t, err)

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Stats{TotalUsers: 6, Coaches: 2, Members: 4}, stats)
}

func TestFindOrphanedAccounts(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	ok, err := f.svc.ProvisionCoach(ctx, CreateCoachRequest{Email: "ok@x.com", Password: "secret12", Name: "Ok"})
	require.NoError(t, err)

	f.repo.putErrs = []error{errors.New("write failed")}
	_, err = f.svc.ProvisionCoach(ctx, CreateCoachRequest{Email: "lost@x.com", Password: "secret12", Name: "Lost"})
	require.Error(t, err)
	lost, _ := AsWorkflowError(err)

	f.identity.accounts = append(f.identity.accounts,
		Account{UID: "admin-claim", Email: "ops@x.com", Admin: true},
		Account{UID: "admin-email", Email: "Root@Example.com"},
	)

	orphans, err := f.svc.FindOrphanedAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, lost.UID, orphans[0].UID)
	assert.NotEqual(t, ok.UID, orphans[0].UID)
	assert.True(t, f.identity.has(lost.UID), "reconciliation never deletes")
}

func TestFindOrphanedAccounts_Errors(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.identity.listErr = errors.New("quota exceeded")

	_, err := f.svc.FindOrphanedAccounts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	f.identity.listErr = nil
	f.repo.keysErr = errors.New("store down")
	_, err = f.svc.FindOrphanedAccounts(context.Background())
	wfErr, ok := AsWorkflowError(err)
	require.True(t, ok)
	assert.Equal(t, KindStoreRead, wfErr.Kind)
}
