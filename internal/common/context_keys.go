// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// UserEmailKey is the context key for storing the authenticated admin's email
	UserEmailKey = "userEmail"
	// FirebaseUIDKey is the context key for storing the Firebase UID
	FirebaseUIDKey = "firebaseUID"
	// AdminClaim is the custom claim that marks a Firebase account as a dashboard admin
	AdminClaim = "admin"
)
