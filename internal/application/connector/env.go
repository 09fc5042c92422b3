// Package connector runs PrestaShop imports and exports: it reads records
// from the web service, maps them to ERP tables and keeps the bindings
// between both sides.
package connector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/lock"
	"github.com/erp/prestashop-connector/internal/infrastructure/logger"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

const tracerName = "github.com/erp/prestashop-connector/internal/application/connector"

// WebService is the part of the PrestaShop client used by the connector
type WebService interface {
	Search(ctx context.Context, resource string, filters prestashop.Filters) ([]int64, error)
	Get(ctx context.Context, resource string, id int64, filters prestashop.Filters) (prestashop.Record, error)
	Edit(ctx context.Context, resource string, id int64, fields prestashop.Record) (prestashop.Record, error)
	Head(ctx context.Context, resource string, id int64) error
	GetImage(ctx context.Context, resource string, resourceID, imageID int64, filters prestashop.Filters) (*prestashop.Image, error)
	Version() connector.Version
}

// ClientFactory builds the web service client of a backend
type ClientFactory func(backend *connector.Backend) (WebService, error)

// ImageStore keeps product images
type ImageStore interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	URL(ctx context.Context, storageKey string) (string, error)
}

// SequenceRepository hands out record names
type SequenceRepository interface {
	Next(ctx context.Context, code, prefix string) (string, error)
}

// Options tune imports
type Options struct {
	// PageSize is the number of ids asked per search page
	PageSize int
	// LockRetry is the delay before a job blocked by an import lock runs again
	LockRetry time.Duration
	// MaxAttempts is the max attempts of the jobs created by delayed batches
	MaxAttempts int
}

// DefaultOptions returns the default import options
func DefaultOptions() Options {
	return Options{
		PageSize:    1000,
		LockRetry:   time.Second,
		MaxAttempts: 5,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = def.PageSize
	}
	if o.LockRetry <= 0 {
		o.LockRetry = def.LockRetry
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	return o
}

// Dependencies are shared by every Env
type Dependencies struct {
	Registry *Registry
	Locker   lock.Locker
	// Images may be nil; product images are then not imported
	Images  ImageStore
	Logger  *zap.Logger
	Options Options
}

// Env is the work context of one job: a backend, its web service client and
// the database transaction every write of the job goes through.
type Env struct {
	Backend  *connector.Backend
	DB       *gorm.DB
	API      WebService
	Registry *Registry
	Locker   lock.Locker
	Images   ImageStore
	Logger   *zap.Logger
	Options  Options

	Backends     connector.BackendRepository
	Bindings     connector.BindingRepository
	Checkpoints  connector.CheckpointRepository
	Jobs         connector.JobRepository
	Translations connector.TranslationRepository
	Sequences    SequenceRepository

	tracer   trace.Tracer
	releases []lock.Release
	held     map[string]struct{}
}

// NewEnv creates the work context of a job running in tx
func NewEnv(backend *connector.Backend, tx *gorm.DB, api WebService, deps Dependencies) *Env {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Env{
		Backend:      backend,
		DB:           tx,
		API:          api,
		Registry:     registry,
		Locker:       deps.Locker,
		Images:       deps.Images,
		Logger:       log.With(logger.Backend(backend.ID)),
		Options:      deps.Options.withDefaults(),
		Backends:     persistence.NewGormBackendRepository(tx),
		Bindings:     persistence.NewGormBindingRepository(tx),
		Checkpoints:  persistence.NewGormCheckpointRepository(tx),
		Jobs:         persistence.NewGormJobRepository(tx),
		Translations: persistence.NewGormTranslationRepository(tx),
		Sequences:    persistence.NewGormSequenceRepository(tx),
		tracer:       otel.Tracer(tracerName),
	}
}

// Close releases the locks taken during the job. Call it once the
// transaction has ended.
func (e *Env) Close() {
	for i := len(e.releases) - 1; i >= 0; i-- {
		e.releases[i]()
	}
	e.releases = nil
	e.held = nil
}

// Binder returns the binder of a model
func (e *Env) Binder(model string) *Binder {
	return NewBinder(e.Bindings, e.Backend.ID, model)
}

// Component returns the registered component of a model
func (e *Env) Component(model string) (*Component, error) {
	return e.Registry.Get(model)
}

// AddCheckpoint flags a record for review
func (e *Env) AddCheckpoint(ctx context.Context, model string, recordID uuid.UUID, message string) error {
	cp, err := connector.NewCheckpoint(e.Backend.ID, model, recordID, message)
	if err != nil {
		return err
	}
	e.Logger.Info("Checkpoint added",
		logger.Model(model),
		zap.String("record_id", recordID.String()),
		zap.String("message", cp.Message),
	)
	return e.Checkpoints.Save(ctx, cp)
}

// AddCheckpointMessage flags the backend itself for review
func (e *Env) AddCheckpointMessage(ctx context.Context, message string) error {
	cp, err := connector.NewCheckpointMessage(e.Backend.ID, message)
	if err != nil {
		return err
	}
	e.Logger.Info("Checkpoint added", zap.String("message", cp.Message))
	return e.Checkpoints.Save(ctx, cp)
}

// LockOrRetry takes the named lock for the rest of the job. A lock the job
// already holds is not taken twice.
func (e *Env) LockOrRetry(ctx context.Context, name string) error {
	if e.Locker == nil {
		return nil
	}
	if _, ok := e.held[name]; ok {
		return nil
	}
	release, err := e.Locker.TryLock(ctx, e.DB, name)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return connector.NewRetryableJobError("Could not acquire advisory lock", e.Options.LockRetry, err)
		}
		return err
	}
	e.releases = append(e.releases, release)
	if e.held == nil {
		e.held = make(map[string]struct{})
	}
	e.held[name] = struct{}{}
	return nil
}
