package syncjobstore

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransitionExecutesInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_job_transitions")).
		WithArgs("job-1", "instance-1", "FINALIZED", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := New(db)
	err = store.RecordTransition(context.Background(), "job-1", "instance-1", "FINALIZED", "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTransitionPropagatesDBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sync_job_transitions")).
		WillReturnError(assert.AnError)

	store := New(db)
	err = store.RecordTransition(context.Background(), "job-1", "instance-1", "ABORTED", "boom")
	require.Error(t, err)
}
