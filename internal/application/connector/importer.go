package connector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/logger"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

const (
	missingRecordMessage = "Record does no longer exist in PrestaShop"
	upToDateMessage      = "Already up-to-date."
)

// Hooks customize the import of one model. Embed NoopHooks and override
// what the model needs.
type Hooks interface {
	// HasToSkip returns a non-empty message when the record must not be imported
	HasToSkip(ctx context.Context, imp *Importer) (string, error)
	BeforeImport(ctx context.Context, imp *Importer) error
	ImportDependencies(ctx context.Context, imp *Importer) error
	ValidateData(ctx context.Context, imp *Importer, values Values) error
	AfterImport(ctx context.Context, imp *Importer, id uuid.UUID) error
}

// NoopHooks implements Hooks with no behavior
type NoopHooks struct{}

func (NoopHooks) HasToSkip(context.Context, *Importer) (string, error) { return "", nil }

func (NoopHooks) BeforeImport(context.Context, *Importer) error { return nil }

func (NoopHooks) ImportDependencies(context.Context, *Importer) error { return nil }

func (NoopHooks) ValidateData(context.Context, *Importer, Values) error { return nil }

func (NoopHooks) AfterImport(context.Context, *Importer, uuid.UUID) error { return nil }

// Importer imports one PrestaShop record
type Importer struct {
	Env        *Env
	Component  *Component
	ExternalID int64
	// Force imports a bound record even when it did not change since the
	// last synchronization
	Force bool

	// Raw is the record as read from PrestaShop
	Raw prestashop.Record
	// Record holds the values of the default language
	Record prestashop.Record
	// Translations holds the record of each other language, by locale code
	Translations map[string]prestashop.Record

	// Bound is set when the record was imported before
	Bound      bool
	InternalID uuid.UUID

	logger *zap.Logger
}

// ImportRecord imports one record of model. It returns a message when
// the import was skipped.
func (e *Env) ImportRecord(ctx context.Context, model string, externalID int64, force bool) (string, error) {
	comp, err := e.Component(model)
	if err != nil {
		return "", err
	}
	imp := &Importer{
		Env:        e,
		Component:  comp,
		ExternalID: externalID,
		Force:      force,
		logger: e.Logger.With(
			logger.Model(model),
			logger.ExternalID(externalID),
		),
	}
	return imp.Run(ctx)
}

// ImportDependency imports a record the current record refers to. Records
// already bound are only imported again, even unchanged, when always is set.
func (e *Env) ImportDependency(ctx context.Context, externalID int64, model string, always bool) error {
	if externalID <= 0 {
		return nil
	}
	if !always {
		_, bound, err := e.Binder(model).ToInternal(ctx, externalID)
		if err != nil {
			return err
		}
		if bound {
			return nil
		}
	}
	_, err := e.ImportRecord(ctx, model, externalID, always)
	if connector.IsNothingToDo(err) {
		e.Logger.Info("Dependency import ignored",
			logger.Model(model),
			logger.ExternalID(externalID),
			zap.String("reason", err.Error()),
		)
		return nil
	}
	return err
}

// Logger returns the logger of the import
func (imp *Importer) Logger() *zap.Logger {
	return imp.logger
}

// Version returns the PrestaShop version of the backend
func (imp *Importer) Version() connector.Version {
	return imp.Env.Backend.Version
}

// Run imports the record
func (imp *Importer) Run(ctx context.Context) (result string, err error) {
	env := imp.Env
	comp := imp.Component
	hooks := comp.hooks()

	ctx, span := env.tracer.Start(ctx, "prestashop.import",
		trace.WithAttributes(
			attribute.String("prestashop.backend_id", env.Backend.ID.String()),
			attribute.String("prestashop.model", comp.Model),
			attribute.Int64("prestashop.external_id", imp.ExternalID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	raw, err := env.API.Get(ctx, comp.Resource, imp.ExternalID, nil)
	if err != nil {
		if connector.IsIDMissing(err) {
			return missingRecordMessage, nil
		}
		return "", err
	}
	imp.Raw = raw
	if err := imp.splitLanguages(); err != nil {
		return "", err
	}

	skip, err := hooks.HasToSkip(ctx, imp)
	if err != nil {
		return "", err
	}
	if skip != "" {
		imp.logger.Info("Import skipped", zap.String("reason", skip))
		return skip, nil
	}

	binder := env.Binder(comp.Model)
	imp.InternalID, imp.Bound, err = binder.ToInternal(ctx, imp.ExternalID)
	if err != nil {
		return "", err
	}
	if imp.Bound && !imp.Force {
		upToDate, err := imp.isUpToDate(ctx)
		if err != nil {
			return "", err
		}
		if upToDate {
			imp.logger.Info("Import skipped", zap.String("reason", upToDateMessage))
			return upToDateMessage, nil
		}
	}

	lockName := fmt.Sprintf("import(prestashop.backend, %s, %s, %d)", env.Backend.ID, comp.Model, imp.ExternalID)
	if err := env.LockOrRetry(ctx, lockName); err != nil {
		return "", err
	}

	if err := hooks.BeforeImport(ctx, imp); err != nil {
		return "", err
	}
	if err := hooks.ImportDependencies(ctx, imp); err != nil {
		return "", err
	}
	values, err := comp.Mapper.Map(ctx, env, imp.Record, !imp.Bound)
	if err != nil {
		return "", err
	}
	if err := hooks.ValidateData(ctx, imp, values); err != nil {
		return "", err
	}

	if imp.Bound {
		err = updateRecord(ctx, env, comp, imp.InternalID, values)
	} else {
		imp.InternalID, err = createRecord(ctx, env, comp, values)
	}
	if err != nil {
		return "", err
	}
	if err := binder.Bind(ctx, imp.ExternalID, imp.InternalID); err != nil {
		return "", err
	}

	if err := imp.writeTranslations(ctx); err != nil {
		return "", err
	}
	if err := hooks.AfterImport(ctx, imp, imp.InternalID); err != nil {
		return "", err
	}

	imp.logger.Info("Record imported",
		zap.String("internal_id", imp.InternalID.String()),
		zap.Bool("created", !imp.Bound),
	)
	return "", nil
}

// isUpToDate reports whether the binding was synchronized after the last
// PrestaShop update of the record. Records without date_upd are always
// imported.
func (imp *Importer) isUpToDate(ctx context.Context) (bool, error) {
	updated, err := parseTime(time.DateTime, imp.Raw.String("date_upd"))
	if err != nil || updated == nil {
		return false, nil
	}
	binding, err := imp.Env.Bindings.FindByExternalID(ctx, imp.Env.Backend.ID, imp.Component.Model, imp.ExternalID)
	if err != nil {
		return false, err
	}
	return binding.SyncDate.After(*updated), nil
}

// splitLanguages puts the default language values of translatable fields
// in Record and the other languages in Translations
func (imp *Importer) splitLanguages() error {
	imp.Record = imp.Raw
	if len(imp.Component.Translatable) == 0 {
		return nil
	}
	backend := imp.Env.Backend
	languages := backend.LanguageMap()
	if len(languages) == 0 {
		return connector.NewFailedJobError(`No language mapping defined. Run "Synchronize base data".`, nil)
	}
	def, err := backend.DefaultLanguage()
	if err != nil {
		return connector.NewFailedJobError(`No language mapping defined. Run "Synchronize base data".`, err)
	}

	split := make(map[string]prestashop.Record, len(languages))
	for _, code := range languages {
		split[code] = imp.Raw.Clone()
	}
	for _, field := range imp.Component.Translatable {
		if !imp.Raw.IsTranslatable(field) {
			continue
		}
		for _, lv := range imp.Raw.Languages(field) {
			code, ok := languages[lv.LangID]
			if !ok {
				continue
			}
			split[code][field] = lv.Value
		}
	}
	imp.Record = split[def.Code]
	delete(split, def.Code)
	imp.Translations = split
	return nil
}

// writeTranslations stores the other language values of the translated
// columns of the record
func (imp *Importer) writeTranslations(ctx context.Context) error {
	comp := imp.Component
	if len(imp.Translations) == 0 || len(comp.TranslatedColumns) == 0 {
		return nil
	}
	table, err := tableName(comp)
	if err != nil {
		return err
	}

	langs := make([]string, 0, len(imp.Translations))
	for code := range imp.Translations {
		langs = append(langs, code)
	}
	sort.Strings(langs)

	var translations []connector.Translation
	for _, code := range langs {
		values, err := comp.Mapper.Map(ctx, imp.Env, imp.Translations[code], false)
		if err != nil {
			return err
		}
		for _, column := range comp.TranslatedColumns {
			value, ok := values[column].(string)
			if !ok || value == "" {
				continue
			}
			translations = append(translations, connector.Translation{
				Table:    table,
				RecordID: imp.InternalID,
				Field:    column,
				Lang:     code,
				Value:    value,
			})
		}
	}
	return imp.Env.Translations.Upsert(ctx, translations)
}

func tableName(comp *Component) (string, error) {
	record := comp.NewRecord()
	if t, ok := record.(interface{ TableName() string }); ok {
		return t.TableName(), nil
	}
	return "", fmt.Errorf("%s: record has no table name", comp.Model)
}

// findByName returns the id of the first record of table named name
func findByName(ctx context.Context, env *Env, record any, name string, where ...any) (uuid.UUID, bool, error) {
	var ids []uuid.UUID
	query := env.DB.WithContext(ctx).Model(record).Where("name = ?", name)
	if len(where) > 0 {
		query = query.Where(where[0], where[1:]...)
	}
	if err := query.Order("created_at ASC").Limit(1).Pluck("id", &ids).Error; err != nil {
		return uuid.Nil, false, err
	}
	if len(ids) == 0 {
		return uuid.Nil, false, nil
	}
	return ids[0], true, nil
}
