package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/chatwidget/pkg/adapter"
	"github.com/m-mizutani/chatwidget/pkg/usecase/cache"
	"github.com/m-mizutani/chatwidget/pkg/usecase/chat"
	"github.com/m-mizutani/chatwidget/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

const (
	storeMemory    = "memory"
	storeSQLite    = "sqlite"
	storeFirestore = "firestore"
	storeGCS       = "gcs"

	responderMock   = "mock"
	responderGemini = "gemini"
)

// config holds configuration values
type config struct {
	logLevel string

	// Session store
	store           string
	dbPath          string
	project         string
	database        string
	bucket          string
	credentialsFile string
	session         string
	newSession      bool

	// Message cache
	maxStored int64
	ttl       time.Duration

	// Responder
	responder      string
	responseDelay  time.Duration
	geminiProject  string
	geminiLocation string
	geminiModel    string

	profilePath string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("CHATWIDGET_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "profile",
			Usage:       "Path to widget profile YAML",
			Sources:     cli.EnvVars("CHATWIDGET_PROFILE"),
			Destination: &cfg.profilePath,
		},
	}
}

// storeFlags returns flags for the session store and message cache
func storeFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Aliases:     []string{"s"},
			Usage:       "Session store backend (memory, sqlite, firestore, gcs)",
			Value:       storeSQLite,
			Sources:     cli.EnvVars("CHATWIDGET_STORE"),
			Destination: &cfg.store,
		},
		&cli.StringFlag{
			Name:        "db-path",
			Usage:       "SQLite database path",
			Value:       "./data/chatwidget.db",
			Sources:     cli.EnvVars("CHATWIDGET_DB_PATH"),
			Destination: &cfg.dbPath,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for the gcs store",
			Sources:     cli.EnvVars("CHATWIDGET_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "credentials-file",
			Usage:       "Service account key file for Google Cloud stores",
			Sources:     cli.EnvVars("GOOGLE_APPLICATION_CREDENTIALS"),
			Destination: &cfg.credentialsFile,
		},
		&cli.StringFlag{
			Name:        "session",
			Usage:       "Session ID that scopes the stored history",
			Value:       "default",
			Sources:     cli.EnvVars("CHATWIDGET_SESSION"),
			Destination: &cfg.session,
		},
		&cli.BoolFlag{
			Name:        "new-session",
			Usage:       "Start a fresh session with a random ID",
			Destination: &cfg.newSession,
		},
		&cli.IntFlag{
			Name:        "max-stored",
			Usage:       "Number of most recent messages kept in the session store",
			Value:       cache.DefaultMaxStored,
			Sources:     cli.EnvVars("CHATWIDGET_MAX_STORED"),
			Destination: &cfg.maxStored,
		},
		&cli.DurationFlag{
			Name:        "ttl",
			Usage:       "How long stored history stays valid",
			Value:       cache.DefaultTTL,
			Sources:     cli.EnvVars("CHATWIDGET_TTL"),
			Destination: &cfg.ttl,
		},
	}
}

// responderFlags returns flags for the reply backend
func responderFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "responder",
			Aliases:     []string{"r"},
			Usage:       "Reply backend (mock, gemini)",
			Value:       responderMock,
			Sources:     cli.EnvVars("CHATWIDGET_RESPONDER"),
			Destination: &cfg.responder,
		},
		&cli.DurationFlag{
			Name:        "response-delay",
			Usage:       "Simulated latency of the mock responder",
			Value:       chat.DefaultResponseDelay,
			Sources:     cli.EnvVars("CHATWIDGET_RESPONSE_DELAY"),
			Destination: &cfg.responseDelay,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// withLogger attaches a stderr logger at the configured level to ctx
func (cfg *config) withLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	return logging.With(ctx, logger)
}

// sessionID returns the session to scope the store to
func (cfg *config) sessionID() string {
	if cfg.newSession {
		cfg.session = uuid.NewString()
		cfg.newSession = false
	}
	return cfg.session
}

func (cfg *config) clientOptions() []option.ClientOption {
	if cfg.credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.credentialsFile)}
}

// newSessionStore creates the configured session store. The returned function
// releases it.
func (cfg *config) newSessionStore(ctx context.Context) (adapter.SessionStore, func(), error) {
	session := cfg.sessionID()
	if session == "" {
		return nil, nil, goerr.New("session is required")
	}
	noop := func() {}

	logging.From(ctx).Debug("opening session store",
		slog.String("store", cfg.store),
		slog.String("session", session),
	)

	switch cfg.store {
	case storeMemory:
		return adapter.NewMemoryStore(), noop, nil

	case storeSQLite:
		if cfg.dbPath == "" {
			return nil, nil, goerr.New("db-path is required")
		}
		store, err := adapter.NewSQLiteStore(cfg.dbPath, session)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create sqlite store")
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logging.From(ctx).Warn("failed to close sqlite store", "error", err)
			}
		}, nil

	case storeFirestore:
		if cfg.project == "" {
			return nil, nil, goerr.New("project is required")
		}
		if cfg.database == "" {
			return nil, nil, goerr.New("database is required")
		}
		store, err := adapter.NewFirestoreStore(ctx, cfg.project, cfg.database, session, cfg.clientOptions()...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create firestore store")
		}
		return store, noop, nil

	case storeGCS:
		store, err := adapter.NewStorageStore(ctx, cfg.bucket, session, cfg.clientOptions()...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create storage store")
		}
		return store, noop, nil

	default:
		return nil, nil, goerr.New("unknown store", goerr.V("store", cfg.store))
	}
}

// newCache creates the message cache on top of store
func (cfg *config) newCache(store adapter.SessionStore) *cache.MessageCache {
	return cache.New(store,
		cache.WithMaxStored(int(cfg.maxStored)),
		cache.WithTTL(cfg.ttl),
	)
}

// newResponder creates the configured responder. Profile values fill in
// whatever was not given on the command line.
func (cfg *config) newResponder(ctx context.Context, prof *profile, delaySet bool) (chat.Responder, error) {
	switch cfg.responder {
	case responderMock:
		delay := cfg.responseDelay
		if !delaySet && prof.ResponseDelay > 0 {
			delay = prof.ResponseDelay
		}
		return chat.NewMockResponder(
			chat.WithDelay(delay),
			chat.WithResponses(prof.Responses),
		), nil

	case responderGemini:
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project is required")
		}
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
		gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
			adapter.WithGenerativeModel(cfg.geminiModel))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gemini client")
		}
		return chat.NewGeminiResponder(gemini, chat.WithSystemPrompt(prof.SystemPrompt)), nil

	default:
		return nil, goerr.New("unknown responder", goerr.V("responder", cfg.responder))
	}
}
