package config

import (
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Backend names accepted by the *_BACKEND variables
const (
	BackendMemory    = "memory"
	BackendFirebase  = "firebase"
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendPostgres  = "postgres"
	BackendLocal     = "local"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		LogLevel  string `env:"LOG_LEVEL"`
		SentryDSN string `env:"SENTRY_DSN"`
		Device    string `env:"APP_DEVICE" env-default:"default"`
	}
	Backend struct {
		Documents   string `env:"DOCUMENT_BACKEND" env-default:"memory"`
		Objects     string `env:"OBJECT_BACKEND" env-default:"memory"`
		Credentials string `env:"CREDENTIAL_BACKEND" env-default:"local"`
		Sessions    string `env:"SESSION_BACKEND" env-default:"memory"`
	}
	Firebase struct {
		CredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`
		ProjectID       string `env:"FIREBASE_PROJECT_ID"`
		StorageBucket   string `env:"FIREBASE_STORAGE_BUCKET"`
		APIKey          string `env:"FIREBASE_API_KEY"`
	}
	Mongo struct {
		URI      string `env:"MONGO_URI"`
		Database string `env:"MONGO_DATABASE" env-default:"socialmedia"`
	}
	Postgres struct {
		ConnStr string `env:"POSTGRES_CONN_STR"`
	}
	Auth struct {
		JWTSecret string        `env:"JWT_SECRET" env-default:"supersecretjwtkey"`
		TokenTTL  time.Duration `env:"JWT_TTL" env-default:"72h"`
	}
	Limits struct {
		Actions int           `env:"ACTION_LIMIT" env-default:"30"`
		Per     time.Duration `env:"ACTION_LIMIT_PER" env-default:"1m"`
		Burst   int           `env:"ACTION_LIMIT_BURST" env-default:"10"`
		Idle    time.Duration `env:"ACTION_LIMIT_IDLE" env-default:"10m"`
	}
	Media struct {
		LibraryDir string `env:"MEDIA_LIBRARY_DIR" env-default:"./media"`
	}
	Workers struct {
		FetchPoolSize int `env:"FETCH_POOL_SIZE" env-default:"8"`
	}
}

var (
	once sync.Once
	cfg    *Config
	cfgErr error
)

// New loads .env (if present) and reads the configuration from the environment once.
func New() (*Config, error) {
	once.Do(func() {
		if loadErr := godotenv.Load(); loadErr != nil {
			log.Println("No .env file found, assuming environment variables are set.")
		}
		cfg, cfgErr = Load()
	})
	return cfg, cfgErr
}

// Load reads the configuration from the environment without caching it.
func Load() (*Config, error) {
	c := &Config{}
	if readErr := cleanenv.ReadEnv(c); readErr != nil {
		help, _ := cleanenv.GetDescription(c, nil)
		log.Printf("Failed to read configuration: %v\n%v", readErr, help)
		return nil, readErr
	}
	return c, nil
}
