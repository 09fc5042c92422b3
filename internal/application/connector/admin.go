package connector

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/logger"
)

// CreateBackend creates a backend. Languages are filled by SynchronizeBaseData.
func (s *BackendService) CreateBackend(ctx context.Context, req CreateBackendRequest) (*BackendResponse, error) {
	backend, err := connector.NewBackend(req.Name, connector.Version(req.Version), req.Location, req.WebserviceKey)
	if err != nil {
		return nil, err
	}
	backend.CompanyID = req.CompanyID
	backend.WarehouseID = req.WarehouseID
	backend.StockLocationID = req.StockLocationID
	backend.PricelistID = req.PricelistID
	backend.SaleTeamID = req.SaleTeamID
	backend.RefundJournalID = req.RefundJournalID
	backend.TaxesIncluded = req.TaxesIncluded
	backend.DiscountProductID = req.DiscountProductID
	backend.ShippingProductID = req.ShippingProductID
	backend.ProductTaxID = req.ProductTaxID

	if err := s.backends.Save(ctx, backend); err != nil {
		return nil, err
	}
	s.logger.Info("Backend created",
		logger.Backend(backend.ID),
		zap.String("location", backend.Location),
	)
	resp := ToBackendResponse(backend)
	return &resp, nil
}

// GetBackend returns a backend
func (s *BackendService) GetBackend(ctx context.Context, id uuid.UUID) (*BackendResponse, error) {
	backend, err := s.backends.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToBackendResponse(backend)
	return &resp, nil
}

// ListBackends returns every backend
func (s *BackendService) ListBackends(ctx context.Context) ([]BackendResponse, error) {
	backends, err := s.backends.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]BackendResponse, len(backends))
	for i := range backends {
		responses[i] = ToBackendResponse(&backends[i])
	}
	return responses, nil
}

// ActiveBackendIDs returns the ids of the active backends
func (s *BackendService) ActiveBackendIDs(ctx context.Context) ([]uuid.UUID, error) {
	backends, err := s.backends.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(backends))
	for i, b := range backends {
		ids[i] = b.ID
	}
	return ids, nil
}

// UpdateBackend updates the settings of a backend
func (s *BackendService) UpdateBackend(ctx context.Context, id uuid.UUID, req UpdateBackendRequest) (*BackendResponse, error) {
	backend, err := s.backends.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		backend.Name = *req.Name
	}
	if req.Version != nil {
		backend.Version = connector.Version(*req.Version)
	}
	if req.Location != nil {
		backend.Location = *req.Location
	}
	if req.WebserviceKey != nil {
		backend.WebserviceKey = *req.WebserviceKey
	}
	if req.WarehouseID != nil {
		backend.WarehouseID = *req.WarehouseID
	}
	if req.StockLocationID != nil {
		backend.StockLocationID = req.StockLocationID
	}
	if req.PricelistID != nil {
		backend.PricelistID = *req.PricelistID
	}
	if req.SaleTeamID != nil {
		backend.SaleTeamID = req.SaleTeamID
	}
	if req.RefundJournalID != nil {
		backend.RefundJournalID = req.RefundJournalID
	}
	if req.TaxesIncluded != nil {
		backend.TaxesIncluded = *req.TaxesIncluded
	}
	if req.DiscountProductID != nil {
		backend.DiscountProductID = req.DiscountProductID
	}
	if req.ShippingProductID != nil {
		backend.ShippingProductID = req.ShippingProductID
	}
	if req.ProductTaxID != nil {
		backend.ProductTaxID = req.ProductTaxID
	}
	if req.Active != nil {
		backend.Active = *req.Active
	}
	if err := backend.Validate(); err != nil {
		return nil, err
	}
	backend.UpdatedAt = s.now()

	if err := s.backends.Save(ctx, backend); err != nil {
		return nil, err
	}
	resp := ToBackendResponse(backend)
	return &resp, nil
}

// DeleteBackend deletes a backend with its bindings, checkpoints and jobs
func (s *BackendService) DeleteBackend(ctx context.Context, id uuid.UUID) error {
	if err := s.backends.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Backend deleted", logger.Backend(id))
	return nil
}

// UpdateLanguages changes the active and default flags of imported
// languages. Exactly one language may be flagged default.
func (s *BackendService) UpdateLanguages(ctx context.Context, id uuid.UUID, req UpdateLanguagesRequest) (*BackendResponse, error) {
	backend, err := s.backends.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	defaultID := int64(0)
	for _, input := range req.Languages {
		found := false
		for i := range backend.Languages {
			if backend.Languages[i].ExternalID == input.ExternalID {
				backend.Languages[i].Active = input.Active
				found = true
			}
		}
		if !found {
			return nil, connector.ErrLanguageNotConfigured
		}
		if input.Default {
			if defaultID != 0 {
				return nil, ErrSeveralDefaultLanguages
			}
			defaultID = input.ExternalID
		}
	}
	if defaultID != 0 {
		if err := backend.SetDefaultLanguage(defaultID); err != nil {
			return nil, err
		}
	}
	backend.UpdatedAt = s.now()

	if err := s.backends.Save(ctx, backend); err != nil {
		return nil, err
	}
	resp := ToBackendResponse(backend)
	return &resp, nil
}

// ListBindings returns a page of the bindings of a backend
func (s *BackendService) ListBindings(ctx context.Context, backendID uuid.UUID, filter connector.BindingFilter) (*ListResult[BindingResponse], error) {
	if filter.Model != "" && !connector.IsValidModel(filter.Model) {
		return nil, connector.ErrInvalidModel
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	bindings, total, err := s.bindings.FindAll(ctx, backendID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]BindingResponse, len(bindings))
	for i, b := range bindings {
		items[i] = BindingResponse{
			ID:         b.ID,
			Model:      b.Model,
			ExternalID: b.ExternalID,
			InternalID: b.InternalID,
			SyncDate:   b.SyncDate,
		}
	}
	return &ListResult[BindingResponse]{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// ListCheckpoints returns a page of the checkpoints of a backend
func (s *BackendService) ListCheckpoints(ctx context.Context, backendID uuid.UUID, filter connector.CheckpointFilter) (*ListResult[CheckpointResponse], error) {
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	checkpoints, total, err := s.checkpoints.FindAll(ctx, backendID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]CheckpointResponse, len(checkpoints))
	for i := range checkpoints {
		items[i] = ToCheckpointResponse(&checkpoints[i])
	}
	return &ListResult[CheckpointResponse]{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// ReviewCheckpoint marks a checkpoint as handled
func (s *BackendService) ReviewCheckpoint(ctx context.Context, id uuid.UUID) (*CheckpointResponse, error) {
	cp, err := s.checkpoints.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cp.Review()
	if err := s.checkpoints.Save(ctx, cp); err != nil {
		return nil, err
	}
	resp := ToCheckpointResponse(cp)
	return &resp, nil
}

// ListJobs returns a page of jobs
func (s *BackendService) ListJobs(ctx context.Context, filter connector.JobFilter) (*ListResult[JobResponse], error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, ErrInvalidJobStatus
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	jobs, total, err := s.jobs.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]JobResponse, len(jobs))
	for i := range jobs {
		items[i] = ToJobResponse(&jobs[i])
	}
	return &ListResult[JobResponse]{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// GetJob returns a job
func (s *BackendService) GetJob(ctx context.Context, id uuid.UUID) (*JobResponse, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToJobResponse(job)
	return &resp, nil
}

// RequeueJob runs a finished job again
func (s *BackendService) RequeueJob(ctx context.Context, id uuid.UUID) (*JobResponse, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == connector.JobStatusStarted {
		return nil, ErrJobRunning
	}
	job.Requeue()
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	resp := ToJobResponse(job)
	return &resp, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
