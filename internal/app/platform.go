package app

import (
	"context"
	"fmt"

	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/platform/cloudstorage"
	"github.com/anonto42/nano-midea/app/internal/platform/firebaseauth"
	"github.com/anonto42/nano-midea/app/internal/platform/firestoredb"
	"github.com/anonto42/nano-midea/app/internal/platform/localauth"
	"github.com/anonto42/nano-midea/app/internal/platform/memory"
	"github.com/anonto42/nano-midea/app/internal/platform/mongodb"
	"github.com/anonto42/nano-midea/app/internal/repositories"
	"github.com/anonto42/nano-midea/app/pkg/config"
	"github.com/anonto42/nano-midea/app/pkg/firebase"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"go.uber.org/fx"
)

// Platform is the set of capability implementations chosen by configuration
type Platform struct {
	fx.Out

	Documents   platform.DocumentStore
	Objects     platform.ObjectStore
	Credentials platform.CredentialService
	Sessions    repositories.SessionRepository
}

func usesFirebase(cfg *config.Config) bool {
	return cfg.Backend.Documents == config.BackendFirestore ||
		cfg.Backend.Objects == config.BackendFirebase ||
		cfg.Backend.Credentials == config.BackendFirebase
}

// NewPlatform connects the configured backends and registers their shutdown
func NewPlatform(lc fx.Lifecycle, cfg *config.Config, log logger.Logger) (Platform, error) {
	ctx := context.Background()
	var (
		p   Platform
		fb  *firebase.App
		err error
	)

	if usesFirebase(cfg) {
		fb, err = firebase.InitFirebase(ctx, firebase.Options{
			CredentialsPath: cfg.Firebase.CredentialsPath,
			ProjectID:       cfg.Firebase.ProjectID,
			StorageBucket:   cfg.Firebase.StorageBucket,
		})
		if err != nil {
			return p, err
		}
		log.Info("Firebase initialized", "project", cfg.Firebase.ProjectID)
	}

	if p.Documents, err = newDocuments(ctx, lc, cfg, fb, log); err != nil {
		return p, err
	}
	if p.Objects, err = newObjects(ctx, cfg, fb); err != nil {
		return p, err
	}
	if p.Credentials, err = newCredentials(ctx, cfg, fb); err != nil {
		return p, err
	}
	if p.Sessions, err = newSessions(lc, cfg, log); err != nil {
		return p, err
	}

	log.Info("Backends configured",
		"documents", cfg.Backend.Documents,
		"objects", cfg.Backend.Objects,
		"credentials", cfg.Backend.Credentials,
		"sessions", cfg.Backend.Sessions,
	)
	return p, nil
}

func newDocuments(ctx context.Context, lc fx.Lifecycle, cfg *config.Config, fb *firebase.App, log logger.Logger) (platform.DocumentStore, error) {
	switch cfg.Backend.Documents {
	case config.BackendMemory:
		return memory.NewStore(nil), nil
	case config.BackendFirestore:
		client, err := fb.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
		return firestoredb.New(client, log), nil
	case config.BackendMongo:
		client, err := config.OpenMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: client.Disconnect})
		return mongodb.New(client, cfg.Mongo.Database, log), nil
	}
	return nil, fmt.Errorf("unknown document backend %q", cfg.Backend.Documents)
}

func newObjects(ctx context.Context, cfg *config.Config, fb *firebase.App) (platform.ObjectStore, error) {
	switch cfg.Backend.Objects {
	case config.BackendMemory:
		return memory.NewObjects(), nil
	case config.BackendFirebase:
		bucket, err := fb.Bucket(ctx)
		if err != nil {
			return nil, err
		}
		return cloudstorage.New(bucket, cfg.Firebase.StorageBucket), nil
	}
	return nil, fmt.Errorf("unknown object backend %q", cfg.Backend.Objects)
}

func newCredentials(ctx context.Context, cfg *config.Config, fb *firebase.App) (platform.CredentialService, error) {
	switch cfg.Backend.Credentials {
	case config.BackendLocal:
		return localauth.New(localauth.Opts{Secret: cfg.Auth.JWTSecret, TokenTTL: cfg.Auth.TokenTTL}), nil
	case config.BackendFirebase:
		return firebaseauth.New(ctx, fb.AuthClient, cfg.Firebase.APIKey)
	}
	return nil, fmt.Errorf("unknown credential backend %q", cfg.Backend.Credentials)
}

func newSessions(lc fx.Lifecycle, cfg *config.Config, log logger.Logger) (repositories.SessionRepository, error) {
	switch cfg.Backend.Sessions {
	case config.BackendMemory:
		return repositories.NewMemorySessionRepository(), nil
	case config.BackendPostgres:
		db, err := config.OpenPostgres(cfg.Postgres.ConnStr)
		if err != nil {
			return nil, err
		}
		repo := repositories.NewPostgresSessionRepository(db)
		if err := repo.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate sessions: %w", err)
		}
		log.Info("PostgreSQL session store ready")
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return config.ClosePostgres(db) }})
		return repo, nil
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.Backend.Sessions)
}
