package connector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/logger"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

// BatchMode selects how a batch imports the records it finds
type BatchMode int

const (
	// BatchDelayed enqueues one import_record job per record
	BatchDelayed BatchMode = iota
	// BatchDirect imports the records in the running job
	BatchDirect
)

// BatchOptions tune the batch import of a component
type BatchOptions struct {
	// Mode is used when the caller does not force one
	Mode BatchMode
	// SinceFilters are added to the date filter of since_date searches
	SinceFilters prestashop.Filters
	// SinceUnpaged runs since_date searches as a single unpaged search
	SinceUnpaged bool
}

// SinceFilters returns the search filters of records updated after since
func SinceFilters(since time.Time) prestashop.Filters {
	return prestashop.Filters{
		"date":             "1",
		"filter[date_upd]": fmt.Sprintf(">[%s]", since.UTC().Format(time.DateTime)),
	}
}

// BatchImport searches the records of model and imports them with the
// component's batch mode. It returns the number of records found.
func (e *Env) BatchImport(ctx context.Context, model string, filters prestashop.Filters, since *time.Time) (int, error) {
	comp, err := e.Component(model)
	if err != nil {
		return 0, err
	}
	return e.batchImport(ctx, comp, comp.Batch.Mode, filters, since)
}

// DirectBatchImport is BatchImport importing every record in the running job
func (e *Env) DirectBatchImport(ctx context.Context, model string, filters prestashop.Filters) (int, error) {
	comp, err := e.Component(model)
	if err != nil {
		return 0, err
	}
	return e.batchImport(ctx, comp, BatchDirect, filters, nil)
}

func (e *Env) batchImport(ctx context.Context, comp *Component, mode BatchMode, filters prestashop.Filters, since *time.Time) (int, error) {
	query := prestashop.Filters{}
	for k, v := range filters {
		query[k] = v
	}
	paged := true
	if since != nil {
		for k, v := range SinceFilters(*since) {
			query[k] = v
		}
		for k, v := range comp.Batch.SinceFilters {
			query[k] = v
		}
		paged = !comp.Batch.SinceUnpaged
	}

	log := e.Logger.With(logger.Model(comp.Model))
	importOne := func(id int64) error {
		if mode == BatchDirect {
			_, err := e.ImportRecord(ctx, comp.Model, id, false)
			return err
		}
		return e.enqueueImport(ctx, comp.Model, id)
	}

	if _, hasLimit := query["limit"]; hasLimit || !paged {
		ids, err := e.API.Search(ctx, comp.Resource, query)
		if err != nil {
			return 0, err
		}
		for _, id := range ids {
			if err := importOne(id); err != nil {
				return 0, err
			}
		}
		log.Info("Batch import done", zap.Int("records", len(ids)))
		return len(ids), nil
	}

	size := e.Options.PageSize
	total := 0
	for offset := 0; ; offset += size {
		query["limit"] = fmt.Sprintf("%d,%d", offset, size)
		ids, err := e.API.Search(ctx, comp.Resource, query)
		if err != nil {
			return total, err
		}
		for _, id := range ids {
			if err := importOne(id); err != nil {
				return total, err
			}
			total++
		}
		if len(ids) < size {
			break
		}
	}
	log.Info("Batch import done", zap.Int("records", total))
	return total, nil
}

// enqueueImport saves an import_record job for the record
func (e *Env) enqueueImport(ctx context.Context, model string, externalID int64) error {
	_, err := e.EnqueueRecord(ctx, model, externalID, false)
	return err
}

// EnqueueRecord saves an import_record job for one record
func (e *Env) EnqueueRecord(ctx context.Context, model string, externalID int64, force bool) (*connector.Job, error) {
	job, err := connector.NewJob(e.Backend.ID, model, connector.JobImportRecord,
		connector.JobArgs{ExternalID: externalID, Force: force}, e.Options.MaxAttempts)
	if err != nil {
		return nil, err
	}
	if err := e.Jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// EnqueueBatch saves an import_batch job for model
func (e *Env) EnqueueBatch(ctx context.Context, model string, filters prestashop.Filters, since *time.Time) (*connector.Job, error) {
	job, err := connector.NewJob(e.Backend.ID, model, connector.JobImportBatch,
		connector.JobArgs{Filters: filters, SinceDate: since}, e.Options.MaxAttempts)
	if err != nil {
		return nil, err
	}
	if err := e.Jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
