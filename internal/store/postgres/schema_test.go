package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/equisy/equisy-api/internal/domain"
)

func mockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db}), GormConfig())
	require.NoError(t, err)

	return gdb, mock
}

func TestSearchPathSQL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `SET LOCAL search_path TO "acme", public`, searchPathSQL("acme"))
	assert.Equal(t, `SET LOCAL search_path TO public`, searchPathSQL(domain.PublicSchema))
}

func TestInSchema_Commit(t *testing.T) {
	t.Parallel()

	gdb, mock := mockGorm(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL search_path TO "acme", public`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM image_masters`)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := InSchema(context.Background(), gdb, "acme", func(tx *gorm.DB) error {
		return tx.Exec(`DELETE FROM image_masters`).Error
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInSchema_RollbackOnError(t *testing.T) {
	t.Parallel()

	gdb, mock := mockGorm(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL search_path TO "acme", public`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := InSchema(context.Background(), gdb, "acme", func(*gorm.DB) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInSchema_InvalidSchema(t *testing.T) {
	t.Parallel()

	gdb, mock := mockGorm(t)

	err := InSchema(context.Background(), gdb, "Bad Schema", func(*gorm.DB) error { return nil })
	require.ErrorIs(t, err, domain.ErrInvalidSchemaName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
