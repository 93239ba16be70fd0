package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/adapter"
	"github.com/m-mizutani/notelet/pkg/repository"
	"github.com/m-mizutani/notelet/pkg/server"
	"github.com/m-mizutani/notelet/pkg/service/extract"
	"github.com/m-mizutani/notelet/pkg/service/tagdedup"
	"github.com/m-mizutani/notelet/pkg/usecase/note"
	"github.com/m-mizutani/notelet/pkg/usecase/qa"
	"github.com/m-mizutani/notelet/pkg/utils/logging"
	"github.com/m-mizutani/notelet/pkg/vector"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	logLevel   string
	configPath string

	// Storage
	storage  string
	project  string
	database string

	// Gemini
	geminiAPIKey    string
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string

	// Tag deduplication
	tagThreshold float64

	// Server
	addr string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("NOTELET_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML configuration file",
			Sources:     cli.EnvVars("NOTELET_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "storage",
			Aliases:     []string{"s"},
			Usage:       "Storage backend (memory or firestore)",
			Value:       "memory",
			Sources:     cli.EnvVars("NOTELET_STORAGE"),
			Destination: &cfg.storage,
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
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
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
			Name:        "generative-model",
			Usage:       "Generative model name",
			Sources:     cli.EnvVars("NOTELET_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name",
			Sources:     cli.EnvVars("NOTELET_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.FloatFlag{
			Name:        "tag-threshold",
			Usage:       "Similarity threshold for tag deduplication",
			Value:       tagdedup.DefaultSimilarityThreshold,
			Sources:     cli.EnvVars("NOTELET_TAG_THRESHOLD"),
			Destination: &cfg.tagThreshold,
		},
	}
}

// fileConfig is the YAML configuration file schema. Values apply only
// where the corresponding flag was not set explicitly.
type fileConfig struct {
	LogLevel        string  `yaml:"log_level"`
	Storage         string  `yaml:"storage"`
	Project         string  `yaml:"project"`
	Database        string  `yaml:"database"`
	GeminiAPIKey    string  `yaml:"gemini_api_key"`
	GeminiProject   string  `yaml:"gemini_project"`
	GeminiLocation  string  `yaml:"gemini_location"`
	GenerativeModel string  `yaml:"generative_model"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	TagThreshold    float64 `yaml:"tag_threshold"`
	Addr            string  `yaml:"addr"`
}

// load merges the YAML configuration file into cfg
func (cfg *config) load(cmd *cli.Command) error {
	if cfg.configPath == "" {
		return nil
	}

	data, err := os.ReadFile(cfg.configPath)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", cfg.configPath))
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", cfg.configPath))
	}

	apply := func(flag string, dst *string, v string) {
		if v != "" && !cmd.IsSet(flag) {
			*dst = v
		}
	}
	apply("log-level", &cfg.logLevel, fc.LogLevel)
	apply("storage", &cfg.storage, fc.Storage)
	apply("project", &cfg.project, fc.Project)
	apply("database", &cfg.database, fc.Database)
	apply("gemini-api-key", &cfg.geminiAPIKey, fc.GeminiAPIKey)
	apply("gemini-project", &cfg.geminiProject, fc.GeminiProject)
	apply("gemini-location", &cfg.geminiLocation, fc.GeminiLocation)
	apply("generative-model", &cfg.generativeModel, fc.GenerativeModel)
	apply("embedding-model", &cfg.embeddingModel, fc.EmbeddingModel)
	apply("addr", &cfg.addr, fc.Addr)

	if fc.TagThreshold != 0 && !cmd.IsSet("tag-threshold") {
		cfg.tagThreshold = fc.TagThreshold
	}

	return nil
}

// setupLogging installs the configured logger as the default and attaches
// it to the context
func (cfg *config) setupLogging(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newGemini creates a Gemini adapter, or nil when no credential is
// configured. A nil adapter runs the service in degraded mode: no
// extraction, no semantic search, exact-match tag dedup only.
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	var opts []adapter.GeminiOption
	switch {
	case cfg.geminiAPIKey != "":
		opts = append(opts, adapter.WithAPIKey(cfg.geminiAPIKey))
	case cfg.geminiProject != "":
		opts = append(opts, adapter.WithVertex(cfg.geminiProject, cfg.geminiLocation))
	default:
		return nil, nil
	}

	if cfg.generativeModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.generativeModel))
	}
	if cfg.embeddingModel != "" {
		opts = append(opts, adapter.WithEmbeddingModel(cfg.embeddingModel))
	}

	client, err := adapter.NewGemini(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini adapter")
	}
	return client, nil
}

// runtime bundles the assembled use cases for one command invocation
type runtime struct {
	notes    *note.UseCase
	answers  *qa.UseCase
	resolver *tagdedup.Deduplicator

	closers []func() error
}

func (r *runtime) Close() {
	for _, closer := range r.closers {
		if err := closer(); err != nil {
			logging.Default().Warn("failed to close resource", "err", err)
		}
	}
}

func (r *runtime) newServer() *server.Server {
	return server.New(r.notes, r.answers, r.resolver)
}

// newRuntime assembles repository, indexes and use cases from the
// configured backends
func (cfg *config) newRuntime(ctx context.Context) (*runtime, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}
	var embedder adapter.Embedder
	if gemini != nil {
		embedder = gemini
	}

	var (
		repo     repository.Repository
		tagIndex vector.TagIndex
		docIndex vector.DocumentIndex
		closers  []func() error
	)

	switch cfg.storage {
	case "memory":
		repo = repository.NewMemory()
		tagIndex = vector.NewMemoryTagIndex()
		docIndex = vector.NewMemoryDocumentIndex(embedder)

	case "firestore":
		if cfg.project == "" {
			return nil, goerr.New("project is required for firestore storage")
		}
		fs, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, err
		}
		closers = append(closers, fs.Close)
		repo = fs
		tagIndex = vector.NewFirestoreTagIndex(fs.Client())
		docIndex = vector.NewFirestoreDocumentIndex(fs.Client(), embedder)

	default:
		return nil, goerr.New("unknown storage backend", goerr.V("storage", cfg.storage))
	}

	resolver, err := tagdedup.New(ctx, repo, tagIndex, embedder,
		tagdedup.WithThreshold(cfg.tagThreshold))
	if err != nil {
		for _, closer := range closers {
			_ = closer()
		}
		return nil, goerr.Wrap(err, "failed to initialize tag deduplication")
	}

	var noteOpts []note.Option
	if gemini != nil {
		noteOpts = append(noteOpts, note.WithExtractor(extract.New(gemini)))
	}

	return &runtime{
		notes:    note.New(repo, resolver, docIndex, noteOpts...),
		answers:  qa.New(docIndex, gemini),
		resolver: resolver,
		closers:  closers,
	}, nil
}
