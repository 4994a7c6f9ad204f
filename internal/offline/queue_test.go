package offline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type permanentErr struct{ msg string }

func (e permanentErr) Error() string          { return e.msg }
func (e permanentErr) PermanentFailure() bool { return true }

func enqueueSuppliers(t *testing.T, q *Queue, names ...string) []Mutation {
	t.Helper()
	out := make([]Mutation, 0, len(names))
	for _, name := range names {
		m := NewMutation(KindCreateSupplier)
		m.Supplier = &SupplierPayload{Name: name}
		require.NoError(t, q.Enqueue(context.Background(), m))
		out = append(out, m)
	}
	return out
}

func TestQueueEnqueueOrder(t *testing.T) {
	q := NewQueue(newTestStore(t), nil)
	want := enqueueSuppliers(t, q, "a", "b", "c")

	pending := q.Pending(context.Background())
	require.Len(t, pending, 3)
	for i, m := range pending {
		require.Equal(t, want[i].ID, m.ID)
	}
	require.Equal(t, 3, q.Len(context.Background()))
}

func TestDrainAppliesInOrder(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(newTestStore(t), nil)
	enqueueSuppliers(t, q, "a", "b", "c")

	var applied []string
	synced, dead, err := q.Drain(ctx, func(_ context.Context, m Mutation) error {
		applied = append(applied, m.Supplier.Name)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, synced)
	require.Zero(t, dead)
	require.Equal(t, []string{"a", "b", "c"}, applied)
	require.Zero(t, q.Len(ctx))
}

func TestDrainKeepsTransientFailures(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(newTestStore(t), nil)
	enqueueSuppliers(t, q, "a", "b", "c")

	synced, dead, err := q.Drain(ctx, func(_ context.Context, m Mutation) error {
		if m.Supplier.Name == "b" {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, synced)
	require.Zero(t, dead, "transient failures are not dead-lettered")

	pending := q.Pending(ctx)
	require.Len(t, pending, 1)
	require.Equal(t, "b", pending[0].Supplier.Name)

	// A later pass can still apply the survivor.
	synced, _, err = q.Drain(ctx, func(_ context.Context, _ Mutation) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, synced)
	require.Zero(t, q.Len(ctx))
}

func TestDrainPreservesRelativeOrderOfFailures(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(newTestStore(t), nil)
	enqueueSuppliers(t, q, "a", "b", "c", "d")

	_, _, err := q.Drain(ctx, func(_ context.Context, m Mutation) error {
		if m.Supplier.Name == "b" || m.Supplier.Name == "d" {
			return errors.New("timeout")
		}
		return nil
	})
	require.NoError(t, err)

	pending := q.Pending(ctx)
	require.Len(t, pending, 2)
	require.Equal(t, "b", pending[0].Supplier.Name)
	require.Equal(t, "d", pending[1].Supplier.Name)
}

func TestDrainDeadLettersPermanentFailures(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(newTestStore(t), nil)
	enqueueSuppliers(t, q, "a", "b")

	synced, dead, err := q.Drain(ctx, func(_ context.Context, m Mutation) error {
		if m.Supplier.Name == "b" {
			return permanentErr{msg: "violates foreign key constraint"}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, synced)
	require.Equal(t, 1, dead)
	require.Zero(t, q.Len(ctx), "permanent failures must not stay queued")

	letters := q.DeadLetters(ctx)
	require.Len(t, letters, 1)
	require.Equal(t, "b", letters[0].Supplier.Name)
	require.Contains(t, letters[0].Reason, "foreign key")
	require.False(t, letters[0].FailedAt.IsZero())
}

func TestQueueSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	q1 := NewQueue(store, nil)
	m := NewMutation(KindDeleteTransaction)
	m.TargetID = 42
	require.NoError(t, q1.Enqueue(ctx, m))

	// A fresh queue over the same store sees the entry.
	q2 := NewQueue(store, nil)
	pending := q2.Pending(ctx)
	require.Len(t, pending, 1)
	require.Equal(t, int64(42), pending[0].TargetID)
}

func TestIsPermanent(t *testing.T) {
	require.False(t, IsPermanent(errors.New("plain")))
	require.True(t, IsPermanent(permanentErr{msg: "x"}))
	wrapped := errors.Join(errors.New("outer"), permanentErr{msg: "inner"})
	require.True(t, IsPermanent(wrapped))
}
