package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxCreateRejectsOverwrite(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	tx := beginTestTx(t, s)

	require.NoError(t, tx.Create(ctx, "file_req_f1", []byte("v1")))

	err := tx.Create(ctx, "file_req_f1", []byte("v2"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	data, found, err := tx.Read(ctx, "file_req_f1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v1"), data, "store unchanged after rejected create")
}

func TestTxReadAbsent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	tx := beginTestTx(t, s)

	data, found, err := tx.Read(ctx, "loan_1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)
}

func TestTxUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	tx := beginTestTx(t, s)

	assert.ErrorIs(t, tx.Update(ctx, "emp_A", []byte("x")), ErrNotFound)
	assert.ErrorIs(t, tx.Delete(ctx, "emp_A"), ErrNotFound)

	require.NoError(t, tx.Create(ctx, "emp_A", []byte("x")))
	require.NoError(t, tx.Update(ctx, "emp_A", []byte("y")))
	require.NoError(t, tx.Update(ctx, "emp_A", []byte("y")), "idempotent rewrite still matches the row")

	data, _, err := tx.Read(ctx, "emp_A")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), data)

	require.NoError(t, tx.Delete(ctx, "emp_A"))
	_, found, err := tx.Read(ctx, "emp_A")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTxRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Create(ctx, "k", []byte("v")))
	require.NoError(t, tx.IndexAdd(ctx, "A", "loan", "1"))
	require.NoError(t, tx.Rollback())

	_, found, err := s.Read(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	ids, err := s.IndexList(ctx, "A", "loan", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTxCommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Create(ctx, "k", []byte("v")))
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

	data, found, err := s.Read(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), data)
}

func TestTxIndexOrderAndBounds(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	tx := beginTestTx(t, s)

	for _, id := range []string{"f3", "f1", "f2"} {
		require.NoError(t, tx.IndexAdd(ctx, "ALICE", "file_req", id))
	}
	require.NoError(t, tx.IndexAdd(ctx, "ALICE", "loan", "1"))
	assert.ErrorIs(t, tx.IndexAdd(ctx, "ALICE", "file_req", "f1"), ErrAlreadyExists)

	ids, err := tx.IndexList(ctx, "ALICE", "file_req", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"f3", "f1", "f2"}, ids, "insertion order, not lexical")

	ids, err = tx.IndexList(ctx, "ALICE", "file_req", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"f3", "f1"}, ids)

	_, err = tx.IndexList(ctx, "ALICE", "file_req", 0)
	assert.Error(t, err)

	n, err := tx.IndexCount(ctx, "ALICE", "file_req")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, tx.IndexRemove(ctx, "ALICE", "file_req", "f1"))
	assert.ErrorIs(t, tx.IndexRemove(ctx, "ALICE", "file_req", "f1"), ErrNotFound)

	ids, err = tx.IndexList(ctx, "ALICE", "file_req", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"f3", "f2"}, ids)

	ids, err = tx.IndexList(ctx, "BOB", "file_req", 10)
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}
