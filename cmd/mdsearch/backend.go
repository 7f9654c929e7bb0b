package main

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/mdsearch/internal/config"
	mdhttp "github.com/fyrsmithlabs/mdsearch/internal/http"
	"github.com/fyrsmithlabs/mdsearch/internal/logging"
	"github.com/fyrsmithlabs/mdsearch/internal/repository"
	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
	"github.com/fyrsmithlabs/mdsearch/internal/services"
	"github.com/fyrsmithlabs/mdsearch/internal/vectorstore"
)

// errRemoteUnsupported is returned for operations the HTTP API does not expose.
var errRemoteUnsupported = errors.New("not available with --server; run without it against the local configuration")

// backend is the part of the pipeline the commands need. It is either the
// in-process pipeline or an HTTP client for mdsearchd.
type backend interface {
	Ingest(ctx context.Context, text string) (int, error)
	IngestChunks(ctx context.Context, chunks []string) (int, error)
	Search(ctx context.Context, query string, topK int) ([]retrieval.Result, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

type localBackend struct {
	*retrieval.Ingester
	*retrieval.Searcher
	reg services.Registry
}

func (b *localBackend) Count(ctx context.Context) (int, error) {
	return b.reg.Store().Count(ctx)
}

func (b *localBackend) Close() error {
	return b.reg.Close()
}

type remoteBackend struct {
	*mdhttp.Client
}

func (remoteBackend) Close() error { return nil }

// session holds what a command needs for one run.
type session struct {
	backend backend
	logger  *logging.Logger

	// store is nil for remote sessions.
	store vectorstore.IndexStore
}

func (s *session) Close() error {
	err := s.backend.Close()
	_ = s.logger.Sync()
	return err
}

// repository returns a directory walker feeding this session's backend.
func (s *session) repository() *repository.Service {
	return repository.NewService(s.backend, s.logger.Underlying().Named("repository"))
}

// open connects to the server named by --server, or builds the local
// pipeline. ensureIndex creates the local index when missing.
func (o *globalOptions) open(ctx context.Context, ensureIndex bool) (*session, error) {
	if o.serverURL != "" {
		logger, err := o.newLogger(nil)
		if err != nil {
			return nil, err
		}
		return &session{
			backend: remoteBackend{mdhttp.NewClient(o.serverURL, nil)},
			logger:  logger,
		}, nil
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := o.newLogger(cfg)
	if err != nil {
		return nil, err
	}

	reg, err := services.Build(ctx, cfg, logger.Underlying(), services.BuildOptions{EnsureIndex: ensureIndex})
	if err != nil {
		return nil, err
	}
	return &session{
		backend: &localBackend{Ingester: reg.Ingester(), Searcher: reg.Searcher(), reg: reg},
		logger:  logger,
		store:   reg.Store(),
	}, nil
}

// newLogger writes console logs to stderr: warnings by default, everything
// with --verbose.
func (o *globalOptions) newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := config.LoggingConfig{Level: "warn", Format: "console"}
	if cfg != nil {
		lc.Level = cfg.Logging.Level
	}
	lcfg, err := logging.FromAppConfig(lc, "mdsearch")
	if err != nil {
		return nil, err
	}
	lcfg.Format = "console"
	lcfg.Caller = false
	if o.verbose {
		lcfg.Level = zapcore.DebugLevel
		lcfg.Sampling.Enabled = false
	} else if lcfg.Level < zapcore.WarnLevel {
		lcfg.Level = zapcore.WarnLevel
	}
	return logging.NewWriterLogger(lcfg, os.Stderr)
}
