package connector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/erp/prestashop-connector/internal/domain/connector"
)

// Binder resolves PrestaShop ids to ERP ids, and back, for one model of a
// backend
type Binder struct {
	repo      connector.BindingRepository
	backendID uuid.UUID
	model     string
}

// NewBinder creates a binder
func NewBinder(repo connector.BindingRepository, backendID uuid.UUID, model string) *Binder {
	return &Binder{repo: repo, backendID: backendID, model: model}
}

// Model returns the binding model
func (b *Binder) Model() string {
	return b.model
}

// ToInternal returns the ERP id bound to a PrestaShop id
func (b *Binder) ToInternal(ctx context.Context, externalID int64) (uuid.UUID, bool, error) {
	if externalID <= 0 {
		return uuid.Nil, false, nil
	}
	binding, err := b.repo.FindByExternalID(ctx, b.backendID, b.model, externalID)
	if err != nil {
		if errors.Is(err, connector.ErrBindingNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return binding.InternalID, true, nil
}

// ToExternal returns the PrestaShop id bound to an ERP id, the first bound
// one when several share it
func (b *Binder) ToExternal(ctx context.Context, internalID uuid.UUID) (int64, bool, error) {
	binding, err := b.repo.FindByInternalID(ctx, b.backendID, b.model, internalID)
	if err != nil {
		if errors.Is(err, connector.ErrBindingNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return binding.ExternalID, true, nil
}

// Bind pairs a PrestaShop id with an ERP id and stamps the sync date.
// A PrestaShop id has one ERP id: ErrBindingConflict is returned when it is
// already bound to another record. Several PrestaShop ids may share an ERP
// record, as matched taxes and countries do.
func (b *Binder) Bind(ctx context.Context, externalID int64, internalID uuid.UUID) error {
	existing, err := b.repo.FindByExternalID(ctx, b.backendID, b.model, externalID)
	switch {
	case err == nil:
		if existing.InternalID != internalID {
			return connector.ErrBindingConflict
		}
		now := time.Now()
		existing.SyncDate = now
		existing.UpdatedAt = now
		return b.repo.Save(ctx, existing)
	case !errors.Is(err, connector.ErrBindingNotFound):
		return err
	}

	binding, err := connector.NewBinding(b.backendID, b.model, externalID, internalID)
	if err != nil {
		return err
	}
	return b.repo.Save(ctx, binding)
}

// Unbind removes the binding of a PrestaShop id
func (b *Binder) Unbind(ctx context.Context, externalID int64) error {
	return b.repo.Delete(ctx, b.backendID, b.model, externalID)
}
