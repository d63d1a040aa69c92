package webhook

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campus-eats-be/internal/order"
	"campus-eats-be/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func s2sResponse(txnID string) string {
	inner := fmt.Sprintf(`{"success":true,"code":"PAYMENT_SUCCESS","data":{"merchantTransactionId":%q,"state":"COMPLETED"}}`, txnID)
	return base64.StdEncoding.EncodeToString([]byte(inner))
}

func TestHandler_CallbackHandler(t *testing.T) {
	t.Run("S2SWithValidSignature", func(t *testing.T) {
		gw := new(MockGateway)
		f := newFixture(t, gw)
		o := f.createOrder(t)
		h := NewHandler(f.rec, gw)

		resp := s2sResponse(o.ID)
		gw.On("VerifyCallback", resp, "good###1").Return(nil).Once()
		gw.On("QueryStatus", mock.Anything, o.ID).Return(paidResult(o.ID), nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/payments/callback", strings.NewReader(`{"response":"`+resp+`"}`))
		req.Header.Set(HeaderXVerify, "good###1")
		w := httptest.NewRecorder()
		h.CallbackHandler(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out Outcome
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.True(t, out.Success)
		assert.Equal(t, payment.StatusPaid, out.Order.PaymentStatus)
		gw.AssertExpectations(t)
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		gw := new(MockGateway)
		f := newFixture(t, gw)
		o := f.createOrder(t)
		h := NewHandler(f.rec, gw)

		resp := s2sResponse(o.ID)
		gw.On("VerifyCallback", resp, "forged###1").Return(payment.ErrInvalidSignature).Once()

		req := httptest.NewRequest(http.MethodPost, "/payments/callback", strings.NewReader(`{"response":"`+resp+`"}`))
		req.Header.Set(HeaderXVerify, "forged###1")
		w := httptest.NewRecorder()
		h.CallbackHandler(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		gw.AssertNotCalled(t, "QueryStatus", mock.Anything, mock.Anything)
	})

	t.Run("MalformedResponse", func(t *testing.T) {
		gw := new(MockGateway)
		f := newFixture(t, gw)
		h := NewHandler(f.rec, gw)

		w := httptest.NewRecorder()
		h.CallbackHandler(w, httptest.NewRequest(http.MethodPost, "/payments/callback",
			strings.NewReader(`{"response":"%%%not-base64"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		gw := new(MockGateway)
		f := newFixture(t, gw)
		h := NewHandler(f.rec, gw)

		w := httptest.NewRecorder()
		h.CallbackHandler(w, httptest.NewRequest(http.MethodPost, "/payments/callback", strings.NewReader(`{`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MissingIdentifier", func(t *testing.T) {
		gw := new(MockGateway)
		f := newFixture(t, gw)
		h := NewHandler(f.rec, gw)

		w := httptest.NewRecorder()
		h.CallbackHandler(w, httptest.NewRequest(http.MethodPost, "/payments/callback",
			strings.NewReader(`{"code":"PAYMENT_SUCCESS"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), ErrMissingIdentifier.Error())
	})

	t.Run("UnknownOrder", func(t *testing.T) {
		gw := new(MockGateway)
		f := newFixture(t, gw)
		h := NewHandler(f.rec, gw)

		w := httptest.NewRecorder()
		h.CallbackHandler(w, httptest.NewRequest(http.MethodPost, "/payments/callback",
			strings.NewReader(`{"merchantTransactionId":"nope"}`)))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ProviderUnavailable", func(t *testing.T) {
		gw := new(MockGateway)
		f := newFixture(t, gw)
		o := f.createOrder(t)
		h := NewHandler(f.rec, gw)

		gw.On("QueryStatus", mock.Anything, o.ID).Return(nil, &payment.PaymentVerificationError{
			MerchantTransactionID: o.ID,
			Message:               "provider unavailable",
			Err:                   errors.New("dial tcp: i/o timeout"),
		}).Once()

		w := httptest.NewRecorder()
		h.CallbackHandler(w, httptest.NewRequest(http.MethodPost, "/payments/callback",
			strings.NewReader(`{"merchantTransactionId":"`+o.ID+`"}`)))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotContains(t, w.Body.String(), "dial tcp")
	})
}

func TestHandler_VerifyHandler(t *testing.T) {
	gw := new(MockGateway)
	f := newFixture(t, gw)
	o := f.createOrder(t)
	h := NewHandler(f.rec, gw)

	gw.On("QueryStatus", mock.Anything, o.ID).Return(paidResult(o.ID), nil).Once()

	w := httptest.NewRecorder()
	h.VerifyHandler(w, httptest.NewRequest(http.MethodPost, "/payments/verify",
		strings.NewReader(`{"transactionId":"`+o.ID+`"}`)))

	require.Equal(t, http.StatusOK, w.Code)
	var out Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, order.StatusPreparing, out.Order.Status)

	logged, err := f.callbacks.ListCallbacks(t.Context(), o.ID)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, SourcePoll, logged[0].Source)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{ErrMissingIdentifier, http.StatusBadRequest},
		{order.ErrOrderNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: paid 1, total 2", ErrAmountMismatch), http.StatusConflict},
		{&payment.PaymentVerificationError{Message: "x"}, http.StatusServiceUnavailable},
		{payment.ErrGatewayMisconfigured, http.StatusServiceUnavailable},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, _ := errorStatus(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
