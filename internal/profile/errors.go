package profile

import "errors"

// ErrorKind says which step of a workflow failed.
type ErrorKind string

const (
	// KindIdentityProvider: the provider rejected account creation. Nothing was written.
	KindIdentityProvider ErrorKind = "identity_provider"
	// KindStoreWrite: the account exists but its profile could not be written.
	KindStoreWrite ErrorKind = "store_write"
	// KindStoreRead: the profile collection could not be read.
	KindStoreRead ErrorKind = "store_read"
)

// WorkflowError is the failure half of a workflow result.
// Error() returns the underlying provider or store message unchanged.
type WorkflowError struct {
	Kind ErrorKind
	// UID is set once the identity provider has issued an account.
	UID string
	// Compensated is true when the account was deleted again after a failed profile write.
	Compensated bool
	Err         error
}

func (e *WorkflowError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// AccountCreated reports whether the identity provider accepted the account
// before the failure happened.
func (e *WorkflowError) AccountCreated() bool {
	return e.UID != ""
}

// Orphaned reports whether an account was left behind without a profile.
func (e *WorkflowError) Orphaned() bool {
	return e.Kind == KindStoreWrite && e.UID != "" && !e.Compensated
}

// AsWorkflowError extracts a *WorkflowError from err.
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr, true
	}
	return nil, false
}
