package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthService_Check(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewHealthService(db)

	mock.ExpectPing()
	assert.NoError(t, s.Check(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = s.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db ping")

	require.NoError(t, mock.ExpectationsWereMet())
}
