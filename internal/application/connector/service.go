package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

// Action names reported in ActionResult
const (
	ActionCheckConnection     = "check_connection"
	ActionSynchronizeMetadata = "synchronize_metadata"
	ActionSynchronizeBaseData = "synchronize_basedata"
	ActionImportCustomers     = "import_customers_since"
	ActionImportProducts      = "import_products"
	ActionImportSaleOrders    = "import_sale_orders"
	ActionImportCarts         = "import_carts"
	ActionImportCarriers      = "import_carriers"
	ActionImportStockQty      = "import_stock_qty"
	ActionExportStockQty      = "export_stock_qty"
	ActionImportRecord        = "import_record"
)

// NewClientFactory returns a ClientFactory creating resty clients with the
// transport settings of template
func NewClientFactory(template prestashop.Config, logger *zap.Logger) ClientFactory {
	return func(backend *connector.Backend) (WebService, error) {
		config := template
		config.Location = backend.Location
		config.WebserviceKey = backend.WebserviceKey
		config.Version = backend.Version
		client, err := prestashop.NewClient(&config, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// BackendService runs the actions of PrestaShop backends and the jobs they
// enqueue. Every action runs in one database transaction.
type BackendService struct {
	db          *gorm.DB
	backends    connector.BackendRepository
	bindings    connector.BindingRepository
	checkpoints connector.CheckpointRepository
	jobs        connector.JobRepository
	clients     ClientFactory
	deps        Dependencies
	logger      *zap.Logger
	now         func() time.Time
}

// NewBackendService creates a new backend service
func NewBackendService(db *gorm.DB, clients ClientFactory, deps Dependencies) *BackendService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = DefaultRegistry()
	}
	deps.Options = deps.Options.withDefaults()
	return &BackendService{
		db:          db,
		backends:    persistence.NewGormBackendRepository(db),
		bindings:    persistence.NewGormBindingRepository(db),
		checkpoints: persistence.NewGormCheckpointRepository(db),
		jobs:        persistence.NewGormJobRepository(db),
		clients:     clients,
		deps:        deps,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// withEnv runs fn in a transaction with the work context of a backend. The
// import locks taken by fn are released once the transaction has ended.
func (s *BackendService) withEnv(ctx context.Context, backendID uuid.UUID, fn func(ctx context.Context, env *Env) error) error {
	backend, err := s.backends.FindByID(ctx, backendID)
	if err != nil {
		return err
	}
	api, err := s.clients(backend)
	if err != nil {
		return err
	}

	var env *Env
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		env = NewEnv(backend, tx, api, s.deps)
		return fn(ctx, env)
	})
	if env != nil {
		env.Close()
	}
	return err
}

// CheckConnection asks the web service root of the backend
func (s *BackendService) CheckConnection(ctx context.Context, backendID uuid.UUID) (*ActionResult, error) {
	backend, err := s.backends.FindByID(ctx, backendID)
	if err != nil {
		return nil, err
	}
	api, err := s.clients(backend)
	if err != nil {
		return nil, err
	}
	if err := api.Head(ctx, "", 0); err != nil {
		return nil, err
	}
	return &ActionResult{Action: ActionCheckConnection, Message: "Connection succeeded"}, nil
}

// SynchronizeMetadata imports the shop groups and the shops
func (s *BackendService) SynchronizeMetadata(ctx context.Context, backendID uuid.UUID) (*ActionResult, error) {
	return s.directImport(ctx, backendID, ActionSynchronizeMetadata,
		connector.ModelShopGroup,
		connector.ModelShop,
	)
}

// SynchronizeBaseData imports the languages, countries, taxes, order states
// and carriers. The language with the lowest PrestaShop id becomes the
// default one when none is set.
func (s *BackendService) SynchronizeBaseData(ctx context.Context, backendID uuid.UUID) (*ActionResult, error) {
	result := &ActionResult{Action: ActionSynchronizeBaseData}
	err := s.withEnv(ctx, backendID, func(ctx context.Context, env *Env) error {
		n, err := env.DirectBatchImport(ctx, connector.ModelLanguage, nil)
		if err != nil {
			return err
		}
		result.Records += n
		if env.Backend.EnsureDefaultLanguage() {
			if err := env.Backends.Save(ctx, env.Backend); err != nil {
				return err
			}
		}
		for _, model := range []string{
			connector.ModelCountry,
			connector.ModelTax,
			connector.ModelSaleOrderState,
			connector.ModelCarrier,
		} {
			n, err := env.DirectBatchImport(ctx, model, nil)
			if err != nil {
				return err
			}
			result.Records += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *BackendService) directImport(ctx context.Context, backendID uuid.UUID, action string, models ...string) (*ActionResult, error) {
	result := &ActionResult{Action: action}
	err := s.withEnv(ctx, backendID, func(ctx context.Context, env *Env) error {
		for _, model := range models {
			n, err := env.DirectBatchImport(ctx, model, nil)
			if err != nil {
				return err
			}
			result.Records += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ImportCustomersSince enqueues the import of the customer groups and the
// customers updated since the last run
func (s *BackendService) ImportCustomersSince(ctx context.Context, backendID uuid.UUID) (*ActionResult, error) {
	return s.importSince(ctx, backendID, ActionImportCustomers, connector.ModelPartner,
		connector.ModelPartnerCategory,
		connector.ModelPartner,
	)
}

// ImportProducts enqueues the import of the categories and the products
// updated since the last run
func (s *BackendService) ImportProducts(ctx context.Context, backendID uuid.UUID) (*ActionResult, error) {
	return s.importSince(ctx, backendID, ActionImportProducts, connector.ModelProductTemplate,
		connector.ModelProductCategory,
		connector.ModelProductTemplate,
	)
}

// ImportSaleOrders enqueues the import of the orders updated since the last run
func (s *BackendService) ImportSaleOrders(ctx context.Context, backendID uuid.UUID) (*ActionResult, error) {
	return s.importSince(ctx, backendID, ActionImportSaleOrders, connector.ModelSaleOrder,
		connector.ModelSaleOrder,
	)
}

// ImportCarts enqueues the import of the carts updated since the last run
func (s *BackendService) ImportCarts(ctx context.Context, backendID uuid.UUID) (*ActionResult, error) {
	return s.importSince(ctx, backendID, ActionImportCarts, connector.ModelCart,
		connector.ModelCart,
	)
}

// importSince enqueues one batch per model, searching the records updated
// after the since date of sinceModel. The since date is then moved to the
// start of the run.
func (s *BackendService) importSince(ctx context.Context, backendID uuid.UUID, action, sinceModel string, models ...string) (*ActionResult, error) {
	start := s.now()
	result := &ActionResult{Action: action}
	err := s.withEnv(ctx, backendID, func(ctx context.Context, env *Env) error {
		since := env.Backend.SinceDate(sinceModel)
		for _, model := range models {
			job, err := env.EnqueueBatch(ctx, model, nil, since)
			if err != nil {
				return err
			}
			result.Jobs = append(result.Jobs, job.ID)
		}
		env.Backend.TouchSinceDate(sinceModel, start)
		return env.Backends.Save(ctx, env.Backend)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ImportCarriers enqueues the import of every carrier
func (s *BackendService) ImportCarriers(ctx context.Context, backendID uuid.UUID) (*ActionResult, error) {
	return s.enqueueBatches(ctx, backendID, ActionImportCarriers, connector.ModelCarrier)
}

// ImportStockQty enqueues the import of every stock record
func (s *BackendService) ImportStockQty(ctx context.Context, backendID uuid.UUID) (*ActionResult, error) {
	return s.enqueueBatches(ctx, backendID, ActionImportStockQty, connector.ModelStockAvailable)
}

func (s *BackendService) enqueueBatches(ctx context.Context, backendID uuid.UUID, action string, models ...string) (*ActionResult, error) {
	result := &ActionResult{Action: action}
	err := s.withEnv(ctx, backendID, func(ctx context.Context, env *Env) error {
		for _, model := range models {
			job, err := env.EnqueueBatch(ctx, model, nil, nil)
			if err != nil {
				return err
			}
			result.Jobs = append(result.Jobs, job.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ImportRecord imports one PrestaShop record, in a job or right away
func (s *BackendService) ImportRecord(ctx context.Context, backendID uuid.UUID, req ImportRecordRequest) (*ActionResult, error) {
	if _, err := s.deps.Registry.Get(req.Model); err != nil {
		return nil, err
	}
	if req.ExternalID <= 0 {
		return nil, connector.ErrInvalidExternalID
	}

	result := &ActionResult{Action: ActionImportRecord}
	err := s.withEnv(ctx, backendID, func(ctx context.Context, env *Env) error {
		if !req.Direct {
			job, err := env.EnqueueRecord(ctx, req.Model, req.ExternalID, req.Force)
			if err != nil {
				return err
			}
			result.Jobs = append(result.Jobs, job.ID)
			return nil
		}
		msg, err := env.ImportRecord(ctx, req.Model, req.ExternalID, req.Force)
		if err != nil {
			return err
		}
		result.Records = 1
		result.Message = msg
		return nil
	})
	var nothing *connector.NothingToDoJob
	if errors.As(err, &nothing) {
		return &ActionResult{Action: ActionImportRecord, Message: nothing.Message}, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExportStockQty enqueues the export of stock quantities. When a quantity
// is given it is recorded on the stock record before the export.
func (s *BackendService) ExportStockQty(ctx context.Context, backendID uuid.UUID, req ExportStockRequest) (*ActionResult, error) {
	args := connector.JobArgs{ExternalID: req.ExternalID}
	if req.Quantity != nil {
		if req.ExternalID <= 0 {
			return nil, connector.ErrInvalidExternalID
		}
		args.Quantity = req.Quantity.String()
	}

	result := &ActionResult{Action: ActionExportStockQty}
	err := s.withEnv(ctx, backendID, func(ctx context.Context, env *Env) error {
		job, err := connector.NewJob(backendID, connector.ModelStockAvailable, connector.JobExportStock,
			args, env.Options.MaxAttempts)
		if err != nil {
			return err
		}
		result.Jobs = append(result.Jobs, job.ID)
		return env.Jobs.Save(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddCheckpoint flags an ERP record of the backend for review
func (s *BackendService) AddCheckpoint(ctx context.Context, backendID uuid.UUID, model string, recordID uuid.UUID, message string) (*connector.Checkpoint, error) {
	if _, err := s.backends.FindByID(ctx, backendID); err != nil {
		return nil, err
	}
	cp, err := connector.NewCheckpoint(backendID, model, recordID, message)
	if err != nil {
		return nil, err
	}
	if err := s.checkpoints.Save(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// AddCheckpointMessage flags the backend itself for review
func (s *BackendService) AddCheckpointMessage(ctx context.Context, backendID uuid.UUID, message string) (*connector.Checkpoint, error) {
	if _, err := s.backends.FindByID(ctx, backendID); err != nil {
		return nil, err
	}
	cp, err := connector.NewCheckpointMessage(backendID, message)
	if err != nil {
		return nil, err
	}
	if err := s.checkpoints.Save(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// RunJob runs a queued job and returns its result message
func (s *BackendService) RunJob(ctx context.Context, job *connector.Job) (string, error) {
	var result string
	err := s.withEnv(ctx, job.BackendID, func(ctx context.Context, env *Env) error {
		var err error
		result, err = runJob(ctx, env, job)
		return err
	})
	if errors.Is(err, connector.ErrBackendNotFound) || errors.Is(err, ErrNoComponent) {
		return "", connector.NewFailedJobError("Job can not run", err)
	}
	return result, err
}

func runJob(ctx context.Context, env *Env, job *connector.Job) (string, error) {
	switch job.Method {
	case connector.JobImportRecord:
		msg, err := env.ImportRecord(ctx, job.Model, job.Args.ExternalID, job.Args.Force)
		if err != nil {
			return "", err
		}
		if msg == "" {
			msg = fmt.Sprintf("Record %d imported", job.Args.ExternalID)
		}
		return msg, nil

	case connector.JobImportBatch:
		n, err := env.BatchImport(ctx, job.Model, prestashop.Filters(job.Args.Filters), job.Args.SinceDate)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d records found", n), nil

	case connector.JobExportStock:
		if job.Args.Quantity != "" {
			quantity, err := decimal.NewFromString(job.Args.Quantity)
			if err != nil {
				return "", connector.NewFailedJobError("Invalid stock quantity", err)
			}
			if err := SetStockQuantity(ctx, env, job.Args.ExternalID, quantity); err != nil {
				return "", err
			}
		}
		n, err := ExportStock(ctx, env, job.Args.ExternalID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d stock records exported", n), nil
	}
	return "", connector.NewFailedJobError(fmt.Sprintf("Unknown job method %q", job.Method), nil)
}
