package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_SaveCallback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	payload := json.RawMessage(`{"merchantTransactionId":"ord-1"}`)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_callbacks`).
			WithArgs(ProviderPhonePe, "callback", "ord-1", true, []byte(payload)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		id, err := repo.SaveCallback(context.Background(), ProviderPhonePe, "callback", "ord-1", payload, true)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), id)
	})

	t.Run("EmptyPayloadStoredAsObject", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_callbacks`).
			WithArgs(ProviderPhonePe, "poll", "ord-1", false, []byte("{}")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))

		id, err := repo.SaveCallback(context.Background(), ProviderPhonePe, "poll", "ord-1", nil, false)
		assert.NoError(t, err)
		assert.Equal(t, int64(8), id)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO payment_callbacks`).
			WillReturnError(errors.New("database error"))

		_, err := repo.SaveCallback(context.Background(), ProviderPhonePe, "callback", "ord-1", payload, true)
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkCallback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Processed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payment_callbacks\s+SET processed_at = now\(\), outcome = \$2`).
			WithArgs(int64(3), "paid").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkCallbackProcessed(context.Background(), 3, "paid"))
	})

	t.Run("Failed", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payment_callbacks\s+SET process_error = \$2`).
			WithArgs(int64(3), "provider unavailable").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkCallbackFailed(context.Background(), 3, "provider unavailable"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListCallbacks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "provider", "source", "merchant_transaction_id", "payload", "signature_valid",
		"outcome", "process_error", "received_at", "processed_at",
	}).
		AddRow(1, ProviderPhonePe, "callback", "ord-1", []byte(`{}`), true, "paid", "", now, now).
		AddRow(2, ProviderPhonePe, "callback", "ord-1", []byte(`{}`), true, "", "", now, nil)

	mock.ExpectQuery(`SELECT .* FROM payment_callbacks\s+WHERE merchant_transaction_id = \$1`).
		WithArgs("ord-1").
		WillReturnRows(rows)

	out, err := repo.ListCallbacks(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "paid", out[0].Outcome)
	assert.NotNil(t, out[0].ProcessedAt)
	assert.Nil(t, out[1].ProcessedAt)
}

func TestMemoryCallbackLog(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryCallbackLog()

	id1, err := log.SaveCallback(ctx, ProviderPhonePe, "callback", "ord-1", json.RawMessage(`{}`), true)
	require.NoError(t, err)
	id2, err := log.SaveCallback(ctx, ProviderPhonePe, "poll", "ord-2", nil, false)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	require.NoError(t, log.MarkCallbackProcessed(ctx, id1, "paid"))
	require.NoError(t, log.MarkCallbackFailed(ctx, id2, "boom"))

	out, err := log.ListCallbacks(ctx, "ord-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "paid", out[0].Outcome)
	assert.NotNil(t, out[0].ProcessedAt)

	out, _ = log.ListCallbacks(ctx, "ord-2")
	require.Len(t, out, 1)
	assert.Equal(t, "boom", out[0].ProcessError)
}
