package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Options selects the Firebase project to connect to
type Options struct {
	CredentialsPath string
	ProjectID       string
	StorageBucket   string
}

// App holds the initialized Firebase app and auth client
type App struct {
	FirebaseApp   *firebase.App
	AuthClient    *auth.Client
	StorageBucket string
	clientOption  option.ClientOption
}

// InitFirebase initializes the Firebase application and authentication client
func InitFirebase(ctx context.Context, opts Options) (*App, error) {
	if opts.CredentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}

	if _, err := os.Stat(opts.CredentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", opts.CredentialsPath)
	}

	opt := option.WithCredentialsFile(opts.CredentialsPath)

	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     opts.ProjectID,
		StorageBucket: opts.StorageBucket,
	}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	return &App{
		FirebaseApp:   firebaseApp,
		AuthClient:    authClient,
		StorageBucket: opts.StorageBucket,
		clientOption:  opt,
	}, nil
}

// Firestore returns a Firestore client for the app's project
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.FirebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return client, nil
}

// Bucket returns the default Cloud Storage bucket configured for the app
func (a *App) Bucket(ctx context.Context) (*gcs.BucketHandle, error) {
	if a.StorageBucket == "" {
		return nil, fmt.Errorf("firebase storage bucket not configured")
	}
	client, err := a.FirebaseApp.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("error getting default bucket: %w", err)
	}
	return bucket, nil
}

// ClientOption returns the credentials option used for the app so other Google API clients can share it
func (a *App) ClientOption() option.ClientOption {
	return a.clientOption
}
