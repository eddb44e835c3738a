package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"equipment-usage-backend/internal/usage"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

func TestGormStore_SweepOverdue(t *testing.T) {
	now := time.Now().UTC()

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedIDs      []string
		expectedErr      bool
	}{
		{
			name: "two overdue logs on the same equipment notify once",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "usage_logs"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "equipment_id"}).
						AddRow("log-1", "mill-1").
						AddRow("log-2", "mill-1").
						AddRow("log-3", "lathe-1"))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "usage_logs"`)).
					WithArgs(Any{}, Any{}, "log-1", "log-2", "log-3").
					WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectCommit()
			},
			expectedIDs: []string{"mill-1", "lathe-1"},
		},
		{
			name: "nothing overdue writes nothing",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "usage_logs"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "equipment_id"}))
				mock.ExpectCommit()
			},
			expectedIDs: nil,
		},
		{
			name: "query failure rolls back",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "usage_logs"`)).
					WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			expectedErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB)

			tc.mockExpectations(mock)

			ids, err := store.SweepOverdue(context.Background(), now)

			if tc.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expectedIDs, ids)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_SaveSnapshot(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	snap := usage.Snapshot{
		RateCents:     700,
		BillableHours: 2,
		CostCents:     1400,
		Source:        usage.RateSourceCategory,
		At:            time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "usage_logs"`)).
		WithArgs(Any{}, Any{}, Any{}, Any{}, Any{}, Any{}, Any{}, "log-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveSnapshot(context.Background(), "log-1", snap)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ReportInputs(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	rangeStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "usage_logs"`)).
		WithArgs(rangeEnd, rangeStart).
		WillReturnRows(sqlmock.NewRows([]string{"id", "equipment_id", "start_time"}).
			AddRow("log-1", "mill-1", rangeStart.Add(2*time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "equipment"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "default_hourly_rate_cents"}).
			AddRow("mill-1", "Milling Machine 1", 900.0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "category_rates"`)).
		WillReturnRows(sqlmock.NewRows([]string{"category", "hourly_rate_cents"}).
			AddRow("mill", 700.0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "projects"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("p1", "Project One"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "test_projects"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	in, err := store.ReportInputs(context.Background(), rangeStart, rangeEnd)
	require.NoError(t, err)

	assert.Len(t, in.Logs, 1)
	assert.Equal(t, "Milling Machine 1", in.Equipment["mill-1"].Name)
	assert.Equal(t, 700.0, in.CategoryRates["mill"])
	assert.Equal(t, "Project One", in.Projects["p1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
