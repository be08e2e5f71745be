package core

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mantonx/playerd/internal/modules/enginemodule"
	"github.com/mantonx/playerd/internal/types"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func TestRegistryJournalsCreateAndDispose(t *testing.T) {
	db, mock := newMockDB(t)
	registry := NewSessionRegistry(db, nil, hclog.NewNullLogger())
	engine := enginemodule.NewFakeEngine("fake")
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "playback_sessions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	session, err := registry.Create(ctx, engine, testSource(), types.SessionOptions{})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "playback_sessions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, registry.Dispose(ctx, session.Handle()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryJournalFailureDoesNotBlockPlayback(t *testing.T) {
	db, mock := newMockDB(t)
	registry := NewSessionRegistry(db, nil, hclog.NewNullLogger())
	engine := enginemodule.NewFakeEngine("fake")
	ctx := context.Background()

	// The journal is best effort; a database outage must not stop playback.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "playback_sessions"`).
		WillReturnError(gorm.ErrInvalidDB)
	mock.ExpectRollback()

	session, err := registry.Create(ctx, engine, testSource(), types.SessionOptions{})
	require.NoError(t, err)
	require.NotNil(t, session)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "playback_sessions"`).
		WillReturnError(gorm.ErrInvalidDB)
	mock.ExpectRollback()

	require.NoError(t, registry.Dispose(ctx, session.Handle()))
}
