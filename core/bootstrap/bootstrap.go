package bootstrap

import (
	"context"
	"fmt"

	coreconfig "github.com/m3rciful/notifybot/core/config"
	coredatabase "github.com/m3rciful/notifybot/core/database"
	"github.com/m3rciful/notifybot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config
	Stores []coredatabase.StoreConfig

	LoggerInit func(*coreconfig.Config) error
	// SkipSchema leaves the stores untouched, for commands that only read them.
	SkipSchema bool
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Stores *coredatabase.Manager
}

// Run initializes the logger, registers the stores and brings their schema up to date.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	stores := coredatabase.NewManager(opts.Stores...)
	if !opts.SkipSchema {
		if err := stores.EnsureSchema(ctx); err != nil {
			_ = stores.CloseAll()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}
	return &Result{Stores: stores}, nil
}
