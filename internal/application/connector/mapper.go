package connector

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

// Values are the column values of an ERP record, keyed by column name
type Values map[string]any

// Merge copies other into v
func (v Values) Merge(other Values) {
	for k, val := range other {
		v[k] = val
	}
}

// MatchKey holds a Match in Values
const MatchKey = "__match"

// Match links the imported record to an existing ERP record, which is
// updated instead of creating a new one
type Match struct {
	ID uuid.UUID
}

// M2M replaces the rows of a join table owned by the record
type M2M struct {
	Table        string
	OwnerColumn  string
	TargetColumn string
	IDs          []uuid.UUID
}

// Converter reads field from a PrestaShop record
type Converter func(ctx context.Context, env *Env, rec prestashop.Record, field string) (any, error)

// Direct copies one PrestaShop field to one column
type Direct struct {
	From string
	To   string
	// Convert defaults to Field
	Convert Converter
}

// MappingFunc computes columns from a whole PrestaShop record
type MappingFunc func(ctx context.Context, env *Env, rec prestashop.Record) (Values, error)

// Mapper converts a PrestaShop record to ERP values
type Mapper struct {
	Direct   []Direct
	Mappings []MappingFunc
	// OnlyCreate mappings are skipped when the record is updated
	OnlyCreate []MappingFunc
}

// Map returns the values of rec. Direct fields are applied first, then
// mappings in order; later keys win.
func (m *Mapper) Map(ctx context.Context, env *Env, rec prestashop.Record, forCreate bool) (Values, error) {
	values := Values{}
	if m == nil {
		return values, nil
	}
	for _, d := range m.Direct {
		convert := d.Convert
		if convert == nil {
			convert = Field
		}
		v, err := convert(ctx, env, rec, d.From)
		if err != nil {
			return nil, err
		}
		values[d.To] = v
	}
	mappings := m.Mappings
	if forCreate {
		mappings = append(append([]MappingFunc{}, m.Mappings...), m.OnlyCreate...)
	}
	for _, mapping := range mappings {
		v, err := mapping(ctx, env, rec)
		if err != nil {
			return nil, err
		}
		values.Merge(v)
	}
	return values, nil
}

// Field copies the text of the field
func Field(_ context.Context, _ *Env, rec prestashop.Record, field string) (any, error) {
	return rec.String(field), nil
}

// NormalizeBoolean is false for "0" and true otherwise
func NormalizeBoolean(_ context.Context, _ *Env, rec prestashop.Record, field string) (any, error) {
	return rec.String(field) != "0", nil
}

// ToInt parses an integer field, 0 when empty
func ToInt(_ context.Context, _ *Env, rec prestashop.Record, field string) (any, error) {
	return rec.Int64(field), nil
}

// ToDecimal parses a decimal field, 0 when empty
func ToDecimal(_ context.Context, _ *Env, rec prestashop.Record, field string) (any, error) {
	return rec.Decimal(field), nil
}

// ToDate parses a YYYY-MM-DD field; empty and zero dates give nil
func ToDate(_ context.Context, _ *Env, rec prestashop.Record, field string) (any, error) {
	return parseTime("2006-01-02", rec.String(field))
}

// ToDatetime parses a "YYYY-MM-DD HH:MM:SS" field; empty and zero dates give nil
func ToDatetime(_ context.Context, _ *Env, rec prestashop.Record, field string) (any, error) {
	return parseTime(time.DateTime, rec.String(field))
}

// ExternalToM2O resolves the PrestaShop id in the field to the ERP id bound
// for model. Empty and "0" ids give nil; an id that is not bound is a
// MappingError.
func ExternalToM2O(model string) Converter {
	return func(ctx context.Context, env *Env, rec prestashop.Record, field string) (any, error) {
		id, err := bindingOf(ctx, env, model, rec.Int64(field))
		if err != nil {
			return nil, err
		}
		return id, nil
	}
}

// bindingOf returns the ERP id bound to externalID, nil for 0
func bindingOf(ctx context.Context, env *Env, model string, externalID int64) (*uuid.UUID, error) {
	if externalID <= 0 {
		return nil, nil
	}
	id, ok, err := env.Binder(model).ToInternal(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, connector.NewMappingError("Can not find an existing %s for external record %d", model, externalID)
	}
	return &id, nil
}

// optionalBindingOf is bindingOf without the MappingError
func optionalBindingOf(ctx context.Context, env *Env, model string, externalID int64) (*uuid.UUID, error) {
	id, err := bindingOf(ctx, env, model, externalID)
	if connector.IsMappingError(err) {
		return nil, nil
	}
	return id, err
}

func parseTime(layout, value string) (*time.Time, error) {
	if value == "" || value[0] == '0' && (value == "0000-00-00" || value == "0000-00-00 00:00:00") {
		return nil, nil
	}
	t, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return nil, connector.NewInvalidDataError(err, "invalid date %q", value)
	}
	return &t, nil
}
