package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"coach_admin_backend/internal/config"
	"coach_admin_backend/internal/firebase"
	"coach_admin_backend/internal/platform/database"
	"coach_admin_backend/internal/platform/logger"
	"coach_admin_backend/internal/profile"
)

const storeConnectTimeout = 10 * time.Second

// ProvideLogger builds the application logger; cleanup flushes it.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, func() {
		if err := l.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}

// ProvideProfileRepository opens the store selected by PROFILE_STORE_DRIVER.
func ProvideProfileRepository(cfg *config.Config, fb *firebase.FirebaseService, logger *zap.Logger) (profile.Repository, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	defer cancel()

	logger = logger.With(zap.String("driver", cfg.ProfileStoreDriver), zap.String("collection", cfg.ProfileCollection))

	switch cfg.ProfileStoreDriver {
	case config.StoreDriverFirestore:
		client, err := fb.Firestore(ctx)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Profile store ready")
		// The Firestore client is closed by the Firebase service cleanup.
		return profile.NewFirestoreRepository(client, cfg.ProfileCollection), func() {}, nil

	case config.StoreDriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI, storeConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Profile store ready", zap.String("database", cfg.MongoDatabase))
		cleanup := func() {
			dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer dcancel()
			if err := client.Disconnect(dctx); err != nil {
				logger.Error("Failed to disconnect MongoDB client", zap.Error(err))
			}
		}
		return profile.NewMongoRepository(client.Database(cfg.MongoDatabase), cfg.ProfileCollection), cleanup, nil

	case config.StoreDriverPostgres, config.StoreDriverSQLite:
		db, err := database.NewGORM(cfg)
		if err != nil {
			return nil, nil, err
		}
		repo, err := profile.NewGORMRepository(db, cfg.ProfileCollection)
		if err != nil {
			database.CloseGORMDB(db)
			return nil, nil, err
		}
		logger.Info("Profile store ready")
		return repo, func() { database.CloseGORMDB(db) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown PROFILE_STORE_DRIVER %q", cfg.ProfileStoreDriver)
	}
}
