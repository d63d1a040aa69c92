package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"
)

const ProviderPhonePe = "PHONEPE"

// CallbackLog records every inbound payment notification. It is an audit
// trail only; order state never depends on it.
type CallbackLog interface {
	SaveCallback(
		ctx context.Context,
		provider string,
		source string,
		merchantTransactionID string,
		payload json.RawMessage,
		signatureValid bool,
	) (callbackID int64, err error)

	MarkCallbackProcessed(ctx context.Context, callbackID int64, outcome string) error
	MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error
	ListCallbacks(ctx context.Context, merchantTransactionID string) ([]*Callback, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) CallbackLog {
	return &repository{db: db}
}

func (r *repository) SaveCallback(
	ctx context.Context,
	provider string,
	source string,
	merchantTransactionID string,
	payload json.RawMessage,
	signatureValid bool,
) (int64, error) {

	const q = `
	INSERT INTO payment_callbacks (
		provider,
		source,
		merchant_transaction_id,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id;
	`

	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		q,
		provider,
		source,
		merchantTransactionID,
		signatureValid,
		[]byte(payload),
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *repository) MarkCallbackProcessed(ctx context.Context, callbackID int64, outcome string) error {
	const q = `
	UPDATE payment_callbacks
	SET processed_at = now(), outcome = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, callbackID, outcome)
	return err
}

func (r *repository) MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error {
	const q = `
	UPDATE payment_callbacks
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, callbackID, reason)
	return err
}

func (r *repository) ListCallbacks(ctx context.Context, merchantTransactionID string) ([]*Callback, error) {
	const q = `
	SELECT id, provider, source, merchant_transaction_id, payload, signature_valid,
		COALESCE(outcome, ''), COALESCE(process_error, ''), received_at, processed_at
	FROM payment_callbacks
	WHERE merchant_transaction_id = $1
	ORDER BY id;
	`

	rows, err := r.db.QueryContext(ctx, q, merchantTransactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Callback
	for rows.Next() {
		var c Callback
		var payload []byte
		if err := rows.Scan(
			&c.ID, &c.Provider, &c.Source, &c.MerchantTransactionID, &payload, &c.SignatureValid,
			&c.Outcome, &c.ProcessError, &c.ReceivedAt, &c.ProcessedAt,
		); err != nil {
			return nil, err
		}
		c.Payload = json.RawMessage(payload)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ----------------- in-memory -----------------

type memoryCallbackLog struct {
	mu        sync.Mutex
	nextID    int64
	callbacks []*Callback
}

func NewMemoryCallbackLog() CallbackLog {
	return &memoryCallbackLog{}
}

func (m *memoryCallbackLog) SaveCallback(
	_ context.Context,
	provider string,
	source string,
	merchantTransactionID string,
	payload json.RawMessage,
	signatureValid bool,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.callbacks = append(m.callbacks, &Callback{
		ID:                    m.nextID,
		Provider:              provider,
		Source:                source,
		MerchantTransactionID: merchantTransactionID,
		Payload:               append(json.RawMessage(nil), payload...),
		SignatureValid:        signatureValid,
		ReceivedAt:            time.Now(),
	})
	return m.nextID, nil
}

func (m *memoryCallbackLog) MarkCallbackProcessed(_ context.Context, callbackID int64, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c := m.find(callbackID); c != nil {
		now := time.Now()
		c.ProcessedAt = &now
		c.Outcome = outcome
	}
	return nil
}

func (m *memoryCallbackLog) MarkCallbackFailed(_ context.Context, callbackID int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c := m.find(callbackID); c != nil {
		c.ProcessError = reason
	}
	return nil
}

func (m *memoryCallbackLog) ListCallbacks(_ context.Context, merchantTransactionID string) ([]*Callback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Callback
	for _, c := range m.callbacks {
		if c.MerchantTransactionID == merchantTransactionID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryCallbackLog) find(id int64) *Callback {
	for _, c := range m.callbacks {
		if c.ID == id {
			return c
		}
	}
	return nil
}
