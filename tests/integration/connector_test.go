package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	connectorapp "github.com/erp/prestashop-connector/internal/application/connector"
	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/lock"
	"github.com/erp/prestashop-connector/internal/infrastructure/migration"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
	"github.com/erp/prestashop-connector/internal/infrastructure/queue"
	"github.com/erp/prestashop-connector/migrations"
	"github.com/erp/prestashop-connector/tests/testutil"
)

func TestMigrations_DownAndUp(t *testing.T) {
	testDB := NewTestDB(t)

	migrator, err := migration.New(testDB.SqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)

	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	var unique bool
	indexQuery := "SELECT indisunique FROM pg_index WHERE indexrelid = 'idx_binding_internal'::regclass"
	require.NoError(t, testDB.DB.Raw(indexQuery).Scan(&unique).Error)
	assert.False(t, unique)

	require.NoError(t, migrator.Steps(-1))
	require.NoError(t, testDB.DB.Raw(indexQuery).Scan(&unique).Error)
	assert.True(t, unique)

	require.NoError(t, migrator.Goto(1))
	var exists bool
	require.NoError(t, testDB.DB.Raw("SELECT to_regclass('public.sale_orders') IS NOT NULL").Scan(&exists).Error)
	assert.False(t, exists)
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, migrator.Up())
	require.NoError(t, testDB.DB.Raw("SELECT to_regclass('public.sale_orders') IS NOT NULL").Scan(&exists).Error)
	assert.True(t, exists)
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
}

func TestPostgresLocker_TransactionScoped(t *testing.T) {
	testDB := NewTestDB(t)
	ctx := context.Background()
	locker := lock.NewPostgresLocker()

	holder := testDB.DB.Begin()
	require.NoError(t, holder.Error)

	release, err := locker.TryLock(ctx, holder, "import(prestashop.res.partner, 1, 1)")
	require.NoError(t, err)
	defer release()

	err = testDB.DB.Transaction(func(tx *gorm.DB) error {
		_, err := locker.TryLock(ctx, tx, "import(prestashop.res.partner, 1, 1)")
		return err
	})
	assert.ErrorIs(t, err, lock.ErrNotAcquired)

	err = testDB.DB.Transaction(func(tx *gorm.DB) error {
		_, err := locker.TryLock(ctx, tx, "import(prestashop.res.partner, 1, 2)")
		return err
	})
	assert.NoError(t, err, "other names are not blocked")

	require.NoError(t, holder.Commit().Error)
	err = testDB.DB.Transaction(func(tx *gorm.DB) error {
		_, err := locker.TryLock(ctx, tx, "import(prestashop.res.partner, 1, 1)")
		return err
	})
	assert.NoError(t, err, "the lock ends with its transaction")
}

func TestJobRepository_ClaimReady(t *testing.T) {
	testDB := NewTestDB(t)
	ctx := context.Background()

	backend, err := connector.NewBackend("Shop", connector.Version1612, "http://shop.example.com", "KEY")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormBackendRepository(testDB.DB).Save(ctx, backend))

	jobs := persistence.NewGormJobRepository(testDB.DB)
	for i := int64(1); i <= 3; i++ {
		job, err := connector.NewJob(backend.ID, connector.ModelPartner, connector.JobImportRecord,
			connector.JobArgs{ExternalID: i}, 3)
		require.NoError(t, err)
		require.NoError(t, jobs.Save(ctx, job))
	}
	later, err := connector.NewJob(backend.ID, connector.ModelPartner, connector.JobImportRecord,
		connector.JobArgs{ExternalID: 4}, 3)
	require.NoError(t, err)
	later.Postpone(time.Hour, "not yet")
	require.NoError(t, jobs.Save(ctx, later))

	now := time.Now()
	first, err := jobs.ClaimReady(ctx, now, 2)
	require.NoError(t, err)
	second, err := jobs.ClaimReady(ctx, now, 2)
	require.NoError(t, err)
	third, err := jobs.ClaimReady(ctx, now, 2)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Len(t, second, 1)
	assert.Empty(t, third)
	seen := map[uuid.UUID]bool{}
	for _, job := range append(first, second...) {
		assert.Equal(t, connector.JobStatusStarted, job.Status)
		assert.Equal(t, 1, job.Attempts)
		assert.False(t, seen[job.ID], "a job is claimed once")
		seen[job.ID] = true
	}

	reset, err := jobs.ResetStarted(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), reset, "jobs of running processes are kept")

	reset, err = jobs.ResetStarted(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), reset)
}

func TestWorkerPool_ImportsProduct(t *testing.T) {
	testDB := NewTestDB(t)
	ctx := context.Background()

	shop := testutil.NewFakePrestaShop(t)
	shop.Add("shop_groups", "shop_group", 1, `<name>Default</name>`)
	shop.Add("shops", "shop", 1, `<id_shop_group>1</id_shop_group><name>Main shop</name>`)
	shop.Add("categories", "category", 2,
		`<id_parent>0</id_parent><active>1</active><position>1</position><id_shop_default>1</id_shop_default>`+
			`<date_add>2024-01-01 00:00:00</date_add><date_upd>2024-01-01 00:00:00</date_upd>`+
			`<name><language id="1">Home</language></name>`+
			`<link_rewrite><language id="1">home</language></link_rewrite>`)
	shop.Add("products", "product", 10,
		`<id_shop_default>1</id_shop_default><id_category_default>2</id_category_default>`+
			`<price>12.000000</price><wholesale_price>5.000000</wholesale_price><weight>0.5</weight>`+
			`<reference>CHAIR</reference><active>1</active><type>simple</type>`+
			`<date_add>2024-01-01 00:00:00</date_add><date_upd>2024-01-02 00:00:00</date_upd>`+
			`<name><language id="1">Chair</language></name>`+
			`<link_rewrite><language id="1">chair</language></link_rewrite>`+
			`<associations><categories><category><id>2</id></category></categories></associations>`)

	backend, err := connector.NewBackend("Shop", connector.Version1612, shop.URL(), "KEY")
	require.NoError(t, err)
	backend.CompanyID = uuid.New()
	backend.WarehouseID = uuid.New()
	backend.Languages = []connector.BackendLanguage{
		{ExternalID: 1, LanguageID: uuid.New(), Code: "en_US", Active: true, Default: true},
	}
	require.NoError(t, persistence.NewGormBackendRepository(testDB.DB).Save(ctx, backend))

	service := connectorapp.NewBackendService(testDB.DB,
		connectorapp.NewClientFactory(prestashop.Config{Timeout: 5 * time.Second}, zap.NewNop()),
		connectorapp.Dependencies{Locker: lock.NewPostgresLocker()},
	)
	_, err = service.SynchronizeMetadata(ctx, backend.ID)
	require.NoError(t, err)

	result, err := service.ImportRecord(ctx, backend.ID,
		connectorapp.ImportRecordRequest{Model: connector.ModelProductTemplate, ExternalID: 10})
	require.NoError(t, err)
	require.Len(t, result.Jobs, 1)

	cfg := queue.DefaultConfig()
	cfg.Workers = 2
	cfg.PollInterval = 100 * time.Millisecond
	pool, err := queue.NewWorkerPool(cfg, persistence.NewGormJobRepository(testDB.DB), service, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, pool.Start(ctx))
	defer func() {
		_ = pool.Stop(context.Background())
	}()

	require.Eventually(t, func() bool {
		job, err := service.GetJob(ctx, result.Jobs[0])
		return err == nil && job.Status == string(connector.JobStatusDone)
	}, 15*time.Second, 100*time.Millisecond)

	assert.Equal(t, int64(1), testDB.Count("product_templates"))
	assert.Equal(t, int64(1), testDB.Count("product_categories"))

	bindings, err := service.ListBindings(ctx, backend.ID, connector.BindingFilter{Model: connector.ModelProductTemplate})
	require.NoError(t, err)
	require.Len(t, bindings.Items, 1)
	assert.Equal(t, int64(10), bindings.Items[0].ExternalID)
}

func TestRedisLocker_HeldForTheWholeJob(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })
	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	locker := lock.NewRedisLocker(client, time.Minute, zap.NewNop())

	backend, err := connector.NewBackend("Shop", connector.Version1612, "http://shop.example.com", "KEY")
	require.NoError(t, err)
	deps := connectorapp.Dependencies{Locker: locker}

	first := connectorapp.NewEnv(backend, nil, nil, deps)
	second := connectorapp.NewEnv(backend, nil, nil, deps)
	name := "import(prestashop.product.template, 10)"

	// one job imports the same product for two order lines
	require.NoError(t, first.LockOrRetry(ctx, name))
	require.NoError(t, first.LockOrRetry(ctx, name))

	err = second.LockOrRetry(ctx, name)
	var retryable *connector.RetryableJobError
	assert.ErrorAs(t, err, &retryable)

	first.Close()
	require.NoError(t, second.LockOrRetry(ctx, name))
	second.Close()
}
