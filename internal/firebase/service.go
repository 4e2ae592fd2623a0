package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"coach_admin_backend/internal/common"
	"coach_admin_backend/internal/config"
	"coach_admin_backend/internal/profile"
)

const googleTokenURI = "https://oauth2.googleapis.com/token"

// FirebaseService wraps the Admin SDK: Auth is the identity provider and
// Firestore is the default profile store.
type FirebaseService struct {
	app        *firebase.App
	authClient *auth.Client
	logger     *zap.Logger

	fsOnce   sync.Once
	fsClient *firestore.Client
	fsErr    error
}

var _ profile.IdentityProvider = (*FirebaseService)(nil)

// NewFirebaseService initializes the Firebase Admin SDK from a key file,
// inline service-account fields, or Application Default Credentials, in
// that order of preference.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, func(), error) {
	logger = logger.Named("Firebase")

	opts, source, err := credentialOptions(cfg)
	if err != nil {
		return nil, nil, err
	}

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	// If ProjectID is not specified, the SDK infers it from the credentials.
	app, err := firebase.NewApp(context.Background(), conf, opts...)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("credentials", source))
		return nil, nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.", zap.String("credentials", source))
	s := &FirebaseService{
		app:        app,
		authClient: authClient,
		logger:     logger,
	}
	cleanup := func() {
		if s.fsClient != nil {
			if err := s.fsClient.Close(); err != nil {
				logger.Error("Failed to close Firestore client", zap.Error(err))
			}
		}
	}
	return s, cleanup, nil
}

func credentialOptions(cfg *config.Config) ([]option.ClientOption, string, error) {
	switch {
	case cfg.FirebaseServiceAccountKeyPath != "":
		return []option.ClientOption{option.WithCredentialsFile(filepath.Clean(cfg.FirebaseServiceAccountKeyPath))}, "key_file", nil
	case cfg.FirebaseClientEmail != "":
		creds, err := inlineCredentialsJSON(cfg)
		if err != nil {
			return nil, "", err
		}
		return []option.ClientOption{option.WithCredentialsJSON(creds)}, "inline", nil
	default:
		return nil, "application_default", nil
	}
}

func inlineCredentialsJSON(cfg *config.Config) ([]byte, error) {
	if cfg.FirebasePrivateKey == "" {
		return nil, errors.New("FIREBASE_PRIVATE_KEY is required with FIREBASE_CLIENT_EMAIL")
	}
	creds := map[string]string{
		"type":         "service_account",
		"project_id":   cfg.FirebaseProjectID,
		"client_email": cfg.FirebaseClientEmail,
		"private_key":  cfg.FirebasePrivateKey,
		"token_uri":    googleTokenURI,
	}
	b, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("error encoding inline Firebase credentials: %w", err)
	}
	return b, nil
}

// Firestore returns the shared Firestore client, creating it on first use.
func (s *FirebaseService) Firestore(ctx context.Context) (*firestore.Client, error) {
	s.fsOnce.Do(func() {
		// The client outlives the caller's deadline.
		s.fsClient, s.fsErr = s.app.Firestore(context.WithoutCancel(ctx))
		if s.fsErr != nil {
			s.logger.Error("Failed to get Firestore client", zap.Error(s.fsErr))
			s.fsErr = fmt.Errorf("error getting Firestore client: %w", s.fsErr)
		}
	})
	return s.fsClient, s.fsErr
}

// CreateAccount creates an email/password account. Provider errors are
// returned unwrapped so their message reaches the caller as-is.
func (s *FirebaseService) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)
	rec, err := s.authClient.CreateUser(ctx, params)
	if err != nil {
		return "", err
	}
	s.logger.Debug("Firebase account created", zap.String("uid", rec.UID))
	return rec.UID, nil
}

func (s *FirebaseService) DeleteAccount(ctx context.Context, uid string) error {
	return s.authClient.DeleteUser(ctx, uid)
}

// ListAccounts pages through every account in the project.
func (s *FirebaseService) ListAccounts(ctx context.Context) ([]profile.Account, error) {
	var accounts []profile.Account
	iter := s.authClient.Users(ctx, "")
	for {
		u, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list Firebase users: %w", err)
		}
		accounts = append(accounts, toAccount(u.UserRecord))
	}
	return accounts, nil
}

func toAccount(u *auth.UserRecord) profile.Account {
	acc := profile.Account{
		UID:         u.UID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}
	if admin, ok := u.CustomClaims[common.AdminClaim].(bool); ok {
		acc.Admin = admin
	}
	if u.UserMetadata != nil && u.UserMetadata.CreationTimestamp > 0 {
		acc.CreatedAt = time.UnixMilli(u.UserMetadata.CreationTimestamp).UTC()
	}
	return acc
}

// VerifyIDToken verifies a Firebase ID token and returns the token claims.
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if idToken == "" {
		return nil, fmt.Errorf("ID token must not be empty")
	}

	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Warn("Firebase ID token verification failed", zap.Error(err))
		return nil, fmt.Errorf("failed to verify Firebase ID token: %w", err)
	}

	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", token.UID))
	return token, nil
}
