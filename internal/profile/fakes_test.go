package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// fakeIdentity behaves like the identity provider for the rules this
// service relies on: email shape, minimum password length, unique email.
type fakeIdentity struct {
	mu        sync.Mutex
	accounts  []Account
	next      int
	deleteErr error
	listErr   error
	deleted   []string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{}
}

func (f *fakeIdentity) CreateAccount(_ context.Context, email, password, displayName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !strings.Contains(email, "@") {
		return "", errors.New("The email address is improperly formatted.")
	}
	if len(password) < 6 {
		return "", errors.New("The password must be a string with at least 6 characters.")
	}
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) {
			return "", errors.New("The email address is already in use by another account.")
		}
	}
	f.next++
	uid := fmt.Sprintf("uid-%03d", f.next)
	f.accounts = append(f.accounts, Account{UID: uid, Email: email, DisplayName: displayName, CreatedAt: time.Now()})
	return uid, nil
}

func (f *fakeIdentity) DeleteAccount(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, a := range f.accounts {
		if a.UID == uid {
			f.accounts = append(f.accounts[:i], f.accounts[i+1:]...)
			f.deleted = append(f.deleted, uid)
			return nil
		}
	}
	return fmt.Errorf("no user record for uid %s", uid)
}

func (f *fakeIdentity) ListAccounts(_ context.Context) ([]Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Account(nil), f.accounts...), nil
}

func (f *fakeIdentity) has(uid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.UID == uid {
			return true
		}
	}
	return false
}

// memoryRepository keeps documents in insertion order. putErrs are returned
// by consecutive Put calls before Put starts succeeding.
type memoryRepository struct {
	mu       sync.Mutex
	order    []string
	docs     map[string]Document
	putErrs  []error
	putCalls int
	findErr  error
	keysErr  error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{docs: map[string]Document{}}
}

func (r *memoryRepository) Put(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.putCalls++
	if len(r.putErrs) > 0 {
		err := r.putErrs[0]
		r.putErrs = r.putErrs[1:]
		return err
	}
	if _, ok := r.docs[p.UID]; !ok {
		r.order = append(r.order, p.UID)
	}
	r.docs[p.UID] = p.ToDocument()
	return nil
}

func (r *memoryRepository) FindAll(_ context.Context) ([]Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []Document
	for _, k := range r.order {
		out = append(out, r.docs[k])
	}
	return out, nil
}

func (r *memoryRepository) ListKeys(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.keysErr != nil {
		return nil, r.keysErr
	}
	return append([]string(nil), r.order...), nil
}

// seed stores a raw document, as if written by another system.
func (r *memoryRepository) seed(key string, doc Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, key)
	r.docs[key] = doc
}

// mockService is a testify mock of Service for handler tests.
type mockService struct {
	mock.Mock
}

func (m *mockService) ProvisionCoach(ctx context.Context, req CreateCoachRequest) (*ProvisionResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*ProvisionResult)
	return res, args.Error(1)
}

func (m *mockService) ListProfiles(ctx context.Context) ([]Document, error) {
	args := m.Called(ctx)
	docs, _ := args.Get(0).([]Document)
	return docs, args.Error(1)
}

func (m *mockService) Stats(ctx context.Context) (*Stats, error) {
	args := m.Called(ctx)
	st, _ := args.Get(0).(*Stats)
	return st, args.Error(1)
}

func (m *mockService) FindOrphanedAccounts(ctx context.Context) ([]Account, error) {
	args := m.Called(ctx)
	accs, _ := args.Get(0).([]Account)
	return accs, args.Error(1)
}
