package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/tests/testutil"
)

func newTestBackend(t *testing.T) *connector.Backend {
	t.Helper()
	backend, err := connector.NewBackend("Shop", connector.Version1612, "http://shop.test", "KEY")
	require.NoError(t, err)
	backend.CompanyID = uuid.New()
	backend.Languages = []connector.BackendLanguage{
		{ExternalID: 2, Code: "fr_FR", Active: true},
		{ExternalID: 1, Code: "en_US", Active: true, Default: true},
	}
	return backend
}

func TestBackendRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormBackendRepository(db)
	ctx := context.Background()

	backend := newTestBackend(t)
	require.NoError(t, repo.Save(ctx, backend))

	t.Run("finds backend with languages ordered by external id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, backend.ID)
		require.NoError(t, err)
		assert.Equal(t, "Shop", found.Name)
		assert.Equal(t, connector.Version1612, found.Version)
		require.Len(t, found.Languages, 2)
		assert.Equal(t, int64(1), found.Languages[0].ExternalID)
		assert.True(t, found.Languages[0].Default)
		assert.Equal(t, map[int64]string{1: "en_US", 2: "fr_FR"}, found.LanguageMap())
	})

	t.Run("save replaces languages", func(t *testing.T) {
		backend.Languages = backend.Languages[1:]
		since := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		backend.ImportPartnersSince = &since
		require.NoError(t, repo.Save(ctx, backend))

		found, err := repo.FindByID(ctx, backend.ID)
		require.NoError(t, err)
		require.Len(t, found.Languages, 1)
		require.NotNil(t, found.ImportPartnersSince)
		assert.True(t, since.Equal(*found.ImportPartnersSince))
	})

	t.Run("find active skips inactive backends", func(t *testing.T) {
		other := newTestBackend(t)
		other.Name = "Archived"
		other.Active = false
		require.NoError(t, repo.Save(ctx, other))

		active, err := repo.FindActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, backend.ID, active[0].ID)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, backend.ID))
		_, err := repo.FindByID(ctx, backend.ID)
		assert.ErrorIs(t, err, connector.ErrBackendNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, backend.ID), connector.ErrBackendNotFound)
	})
}

func TestBindingRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormBindingRepository(db)
	ctx := context.Background()
	backendID := uuid.New()
	internalID := uuid.New()

	binding, err := connector.NewBinding(backendID, connector.ModelPartner, 42, internalID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, binding))

	t.Run("find by external and internal id", func(t *testing.T) {
		found, err := repo.FindByExternalID(ctx, backendID, connector.ModelPartner, 42)
		require.NoError(t, err)
		assert.Equal(t, internalID, found.InternalID)

		found, err = repo.FindByInternalID(ctx, backendID, connector.ModelPartner, internalID)
		require.NoError(t, err)
		assert.Equal(t, int64(42), found.ExternalID)
	})

	t.Run("not found on another model", func(t *testing.T) {
		_, err := repo.FindByExternalID(ctx, backendID, connector.ModelAddress, 42)
		assert.ErrorIs(t, err, connector.ErrBindingNotFound)
	})

	t.Run("external id is unique per backend and model", func(t *testing.T) {
		dup, err := connector.NewBinding(backendID, connector.ModelPartner, 42, uuid.New())
		require.NoError(t, err)
		assert.Error(t, repo.Save(ctx, dup))
	})

	t.Run("several external ids share an internal id", func(t *testing.T) {
		shared := uuid.New()
		older, err := connector.NewBinding(backendID, connector.ModelTax, 3, shared)
		require.NoError(t, err)
		older.CreatedAt = time.Now().Add(-time.Hour)
		newer, err := connector.NewBinding(backendID, connector.ModelTax, 1, shared)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, older))
		require.NoError(t, repo.Save(ctx, newer))

		found, err := repo.FindByInternalID(ctx, backendID, connector.ModelTax, shared)
		require.NoError(t, err)
		assert.Equal(t, int64(3), found.ExternalID)
	})

	t.Run("list with model filter and pagination", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			b, err := connector.NewBinding(backendID, connector.ModelAddress, i, uuid.New())
			require.NoError(t, err)
			require.NoError(t, repo.Save(ctx, b))
		}
		bindings, total, err := repo.FindAll(ctx, backendID, connector.BindingFilter{
			Model: connector.ModelAddress, Page: 2, PageSize: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, bindings, 1)
		assert.Equal(t, int64(3), bindings[0].ExternalID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, backendID, connector.ModelPartner, 42))
		assert.ErrorIs(t, repo.Delete(ctx, backendID, connector.ModelPartner, 42), connector.ErrBindingNotFound)
	})
}

func TestCheckpointRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormCheckpointRepository(db)
	ctx := context.Background()
	backendID := uuid.New()

	cp, err := connector.NewCheckpoint(backendID, connector.ModelAddress, uuid.New(), "Please check the VAT number: XX")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cp))
	msg, err := connector.NewCheckpointMessage(backendID, "Cannot find tax VAT 7%")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, msg))

	cp.Review()
	require.NoError(t, repo.Save(ctx, cp))

	found, err := repo.FindByID(ctx, cp.ID)
	require.NoError(t, err)
	assert.True(t, found.Reviewed)
	assert.NotNil(t, found.ReviewedAt)

	pending := false
	list, total, err := repo.FindAll(ctx, backendID, connector.CheckpointFilter{Reviewed: &pending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, msg.ID, list[0].ID)
	assert.Nil(t, list[0].RecordID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, connector.ErrCheckpointNotFound)
}

func TestJobRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormJobRepository(db)
	ctx := context.Background()
	backendID := uuid.New()
	now := time.Now()

	newJob := func(externalID int64, priority int, eta *time.Time) *connector.Job {
		job, err := connector.NewJob(backendID, connector.ModelPartner, connector.JobImportRecord,
			connector.JobArgs{ExternalID: externalID}, 3)
		require.NoError(t, err)
		job.Priority = priority
		job.ETA = eta
		require.NoError(t, repo.Save(ctx, job))
		return job
	}

	later := now.Add(time.Hour)
	low := newJob(1, 20, nil)
	high := newJob(2, 5, nil)
	newJob(3, 1, &later)

	t.Run("claims ready jobs by priority", func(t *testing.T) {
		claimed, err := repo.ClaimReady(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, claimed, 2)
		assert.Equal(t, high.ID, claimed[0].ID)
		assert.Equal(t, low.ID, claimed[1].ID)
		assert.Equal(t, connector.JobStatusStarted, claimed[0].Status)
		assert.Equal(t, 1, claimed[0].Attempts)
		assert.Equal(t, int64(2), claimed[0].Args.ExternalID)

		again, err := repo.ClaimReady(ctx, now, 10)
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("recently started jobs are not reset", func(t *testing.T) {
		n, err := repo.ResetStarted(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		found, err := repo.FindByID(ctx, low.ID)
		require.NoError(t, err)
		assert.Equal(t, connector.JobStatusStarted, found.Status)
	})

	t.Run("reset started jobs", func(t *testing.T) {
		n, err := repo.ResetStarted(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		found, err := repo.FindByID(ctx, low.ID)
		require.NoError(t, err)
		assert.Equal(t, connector.JobStatusPending, found.Status)
	})

	t.Run("list with filters", func(t *testing.T) {
		status := connector.JobStatusPending
		jobs, total, err := repo.FindAll(ctx, connector.JobFilter{BackendID: &backendID, Status: &status, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, jobs, 2)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, connector.ErrJobNotFound)
	})
}

func TestTranslationRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormTranslationRepository(db)
	ctx := context.Background()
	recordID := uuid.New()

	require.NoError(t, repo.Upsert(ctx, []connector.Translation{
		{Table: "product_templates", RecordID: recordID, Field: "name", Lang: "fr_FR", Value: "Chaise"},
		{Table: "product_templates", RecordID: recordID, Field: "name", Lang: "de_DE", Value: "Stuhl"},
	}))
	require.NoError(t, repo.Upsert(ctx, []connector.Translation{
		{Table: "product_templates", RecordID: recordID, Field: "name", Lang: "fr_FR", Value: "Fauteuil"},
	}))
	require.NoError(t, repo.Upsert(ctx, nil))

	translations, err := repo.FindByRecord(ctx, "product_templates", recordID)
	require.NoError(t, err)
	require.Len(t, translations, 2)
	assert.Equal(t, "de_DE", translations[0].Lang)
	assert.Equal(t, "Fauteuil", translations[1].Value)
}

func TestSequenceRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormSequenceRepository(db)
	ctx := context.Background()

	first, err := repo.Next(ctx, "prestashop.cart", "CART/")
	require.NoError(t, err)
	second, err := repo.Next(ctx, "prestashop.cart", "IGNORED/")
	require.NoError(t, err)

	assert.Equal(t, "CART/00001", first)
	assert.Equal(t, "CART/00002", second)
}
