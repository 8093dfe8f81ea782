package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appstock "github.com/nursery/backend/internal/application/stock"
	"github.com/nursery/backend/internal/infrastructure/persistence"
	"github.com/nursery/backend/internal/infrastructure/persistence/models"
	"github.com/nursery/backend/internal/interfaces/http/dto"
	"github.com/nursery/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testEnv is the full handler stack over an in-memory sqlite database
type testEnv struct {
	router  *gin.Engine
	species uuid.UUID
}

// envelope mirrors dto.Response with typed data
type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

func newTestEnv(t *testing.T, checks ...HealthCheck) *testEnv {
	t.Helper()
	middleware.SetupValidator()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	unitRepo := persistence.NewGormUnitRepository(db)
	eventRepo := persistence.NewGormEventRepository(db)
	zoneRepo := persistence.NewGormZoneRepository(db)
	plantingRepo := persistence.NewGormPlantingRepository(db)
	holdRepo := persistence.NewGormHoldRepository(db)

	lifecycle := appstock.NewLifecycleService(
		persistence.NewGormTransactionScope(db),
		unitRepo,
		zoneRepo,
		appstock.NewRoleAuthorizer(appstock.DefaultCorrectionRoles),
		nil,
	)
	ledger := appstock.NewLedgerService(unitRepo, eventRepo, nil)
	rollup := appstock.NewRollupService(unitRepo, plantingRepo, holdRepo, nil)
	allocations := appstock.NewAllocationService(holdRepo, unitRepo, rollup, lifecycle,
		appstock.NewLocalGroupLocker(time.Second), 0, nil)
	expiration := appstock.NewHoldExpirationService(holdRepo, nil)

	zones := NewZoneHandler(appstock.NewZoneService(zoneRepo, plantingRepo, nil))
	units := NewUnitHandler(lifecycle, ledger)
	rollups := NewRollupHandler(rollup)
	allocs := NewAllocationHandler(allocations, expiration)
	health := NewHealthHandler("nursery", "test", checks...)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Authenticate(middleware.AuthConfig{}))
	v1 := r.Group("/api/v1")
	v1.GET("/health", health.Health)
	v1.POST("/zones", zones.Create)
	v1.GET("/zones", zones.List)
	v1.PUT("/zones/:id/plantings", zones.SetPlanting)
	v1.POST("/units", units.Tag)
	v1.GET("/units", units.List)
	v1.GET("/units/:id", units.Get)
	v1.POST("/units/:id/transition", units.Transition)
	v1.PATCH("/units/:id/classification", units.Reclassify)
	v1.POST("/units/:id/relocate", units.Relocate)
	v1.GET("/units/:id/timeline", units.Timeline)
	v1.GET("/units/:id/verify", units.Verify)
	v1.GET("/rollup", rollups.Get)
	v1.POST("/allocations", allocs.Allocate)
	v1.POST("/allocations/units", allocs.AllocateUnit)
	v1.POST("/allocations/expire", allocs.Expire)
	v1.GET("/allocations", allocs.List)
	v1.GET("/allocations/:id", allocs.Get)
	v1.POST("/allocations/:id/bind", allocs.Bind)
	v1.POST("/allocations/:id/release", allocs.Release)

	return &testEnv{router: r, species: uuid.New()}
}

// do sends a request as crew-1 with the given roles
func (e *testEnv) do(t *testing.T, method, path string, body any, roles ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderActorID, "crew-1")
	if len(roles) > 0 {
		req.Header.Set(middleware.HeaderActorRoles, strings.Join(roles, ","))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (e *testEnv) createZone(t *testing.T, code string) appstock.ZoneResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/zones", gin.H{"code": code, "plot_type": "field"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[appstock.ZoneResponse](t, w).Data
}

func (e *testEnv) tagUnit(t *testing.T, code string, zoneID uuid.UUID) appstock.UnitResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/units", gin.H{
		"code":       code,
		"species_id": e.species.String(),
		"size_label": "#15",
		"zone_id":    zoneID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[appstock.UnitResponse](t, w).Data
}

func (e *testEnv) transition(t *testing.T, unitID uuid.UUID, body gin.H, roles ...string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/units/"+unitID.String()+"/transition", body, roles...)
}

// makeReady walks a freshly tagged unit to ready_for_sale along normal edges
func (e *testEnv) makeReady(t *testing.T, unitID uuid.UUID) {
	t.Helper()
	for _, to := range []string{"dig_ordered", "dug", "ready_for_sale"} {
		w := e.transition(t, unitID, gin.H{"to_status": to})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

func failingCheck(name string) HealthCheck {
	return HealthCheck{Name: name, Check: func(context.Context) error { return errors.New("connection refused") }}
}

func passingCheck(name string) HealthCheck {
	return HealthCheck{Name: name, Check: func(context.Context) error { return nil }}
}
