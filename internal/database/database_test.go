package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("fails with invalid connection string", func(t *testing.T) {
		pool, err := Connect(context.Background(), "invalid://connection")
		require.Error(t, err)
		require.Nil(t, pool)
	})

	t.Run("fails with invalid port", func(t *testing.T) {
		pool, err := Connect(context.Background(), "postgres://localhost:notaport/wallet")
		require.ErrorContains(t, err, "parse database URL")
		require.Nil(t, pool)
	})

	t.Run("fails with unreachable host", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		pool, err := Connect(ctx, "postgres://localhost:59999/nonexistent?connect_timeout=1")
		require.Error(t, err)
		require.Nil(t, pool)
	})
}

// plainDB is a PGXDB that cannot begin transactions.
type plainDB struct {
	execs int
}

func (p *plainDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	p.execs++
	return pgconn.CommandTag{}, nil
}

func (p *plainDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (p *plainDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestInTx(t *testing.T) {
	t.Parallel()

	t.Run("runs directly when transactions are unavailable", func(t *testing.T) {
		t.Parallel()
		db := &plainDB{}

		err := InTx(context.Background(), db, func(q PGXDB) error {
			require.Same(t, db, q)
			_, err := q.Exec(context.Background(), "SELECT 1")
			return err
		})
		require.NoError(t, err)
		require.Equal(t, 1, db.execs)
	})

	t.Run("returns the callback error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")

		err := InTx(context.Background(), &plainDB{}, func(PGXDB) error { return boom })
		require.ErrorIs(t, err, boom)
	})
}

func TestInTx_RollsBackOnError(t *testing.T) {
	tx := TestTx(t)
	ctx := context.Background()

	_, err := tx.Exec(ctx, `INSERT INTO users (id, email) VALUES ('intx-user', 'a@example.com')`)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = InTx(ctx, tx, func(q PGXDB) error {
		if _, err := q.Exec(ctx, `UPDATE users SET full_name = 'Changed' WHERE id = 'intx-user'`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var name string
	require.NoError(t, tx.QueryRow(ctx, `SELECT full_name FROM users WHERE id = 'intx-user'`).Scan(&name))
	require.Empty(t, name)
}
