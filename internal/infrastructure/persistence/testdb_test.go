package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/nursery/backend/internal/domain/stock"
	"github.com/nursery/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory sqlite database with the schema applied.
// A single connection keeps every query on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
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
	return db
}

// newMockDB returns a postgres-dialect gorm handle backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func seedZone(t *testing.T, db *gorm.DB, code string, plot stock.PlotType) *stock.Zone {
	t.Helper()
	zone, err := stock.NewZone(code, "", plot)
	require.NoError(t, err)
	require.NoError(t, NewGormZoneRepository(db).Create(t.Context(), zone))
	return zone
}

func newTestUnit(t *testing.T, code string, species, zone uuid.UUID) *stock.Unit {
	t.Helper()
	u, err := stock.NewUnit(stock.TagSpec{
		Code:      code,
		SpeciesID: species,
		SizeLabel: "#15",
		ZoneID:    zone,
		TaggedBy:  "crew-1",
	})
	require.NoError(t, err)
	return u
}

func timeStep(i int) time.Duration {
	return time.Duration(i) * time.Minute
}
