package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"campus-eats-be/internal/logger"

	"go.uber.org/zap"
)

const (
	PhonePeProductionURL = "https://api.phonepe.com/apis/hermes"
	PhonePeSandboxURL    = "https://api-preprod.phonepe.com/apis/pg-sandbox"

	defaultTimeout = 15 * time.Second
	redirectMode   = "POST"
)

// Provider codes. Anything outside these sets is treated as still pending
// when the query itself succeeded.
var (
	paidCodes = map[string]bool{
		"PAYMENT_SUCCESS": true,
		"COMPLETED":       true,
	}
	failedCodes = map[string]bool{
		"PAYMENT_ERROR":        true,
		"PAYMENT_DECLINED":     true,
		"PAYMENT_CANCELLED":    true,
		"TIMED_OUT":            true,
		"FAILED":               true,
		"AUTHORIZATION_FAILED": true,
	}
	pendingCodes = map[string]bool{
		"PAYMENT_PENDING":   true,
		"PAYMENT_INITIATED": true,
		"PENDING":           true,
	}
)

type PhonePeConfig struct {
	BaseURL     string
	MerchantID  string
	SaltKey     string
	SaltIndex   string
	CallbackURL string
	RedirectURL string
	Timeout     time.Duration
}

type phonePeGateway struct {
	baseURL     string
	merchantID  string
	saltKey     string
	saltIndex   string
	callbackURL string
	redirectURL string
	httpClient  *http.Client
}

// ----------------- Constructor -----------------

func NewPhonePeGateway(cfg PhonePeConfig) (Gateway, error) {
	if cfg.SaltKey == "" || cfg.SaltIndex == "" {
		return nil, ErrMissingSaltKey
	}
	if cfg.MerchantID == "" || cfg.BaseURL == "" || cfg.CallbackURL == "" {
		return nil, ErrGatewayMisconfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &phonePeGateway{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		merchantID:  cfg.MerchantID,
		saltKey:     cfg.SaltKey,
		saltIndex:   cfg.SaltIndex,
		callbackURL: cfg.CallbackURL,
		redirectURL: cfg.RedirectURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ----------------- Initiate -----------------

func (p *phonePeGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_id", req.OrderID),
		zap.String("amount", req.Amount.String()),
	)

	if req.OrderID == "" {
		return nil, &PaymentInitiationError{Message: "order id is required"}
	}

	paise, err := ToMinorUnits(req.Amount)
	if err != nil {
		return nil, &PaymentInitiationError{Message: "invalid amount", Err: err}
	}

	merchantUserID := req.MerchantUserID
	if merchantUserID == "" {
		merchantUserID = "MUID-" + req.OrderID
	}

	payload := phonePePayload{
		MerchantID:            p.merchantID,
		MerchantTransactionID: req.OrderID,
		MerchantUserID:        merchantUserID,
		Amount:                paise,
		RedirectURL:           p.redirectURL,
		RedirectMode:          redirectMode,
		CallbackURL:           p.callbackURL,
		MobileNumber:          req.MobileNumber,
		PaymentInstrument:     paymentInstrument{Type: InstrumentPayPage},
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		log.Error("Failed to marshal payment payload", zap.Error(err))
		return nil, &PaymentInitiationError{Message: "failed to encode payload", Err: err}
	}
	encoded := base64.StdEncoding.EncodeToString(jsonPayload)

	checksum, err := ComputeChecksum([]byte(encoded), PayRoute, p.saltKey, p.saltIndex)
	if err != nil {
		return nil, &PaymentInitiationError{Message: "failed to sign payload", Err: err}
	}

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, &PaymentInitiationError{Message: "failed to encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+PayRoute, bytes.NewBuffer(body))
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return nil, &PaymentInitiationError{Message: "failed to build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", checksum)

	log.Info("Sending payment request to PhonePe", zap.Int64("amount_paise", paise))

	env, status, err := p.do(httpReq)
	if err != nil {
		log.Error("PhonePe pay request failed", zap.Error(err), zap.Int("http_status", status))
		return nil, &PaymentInitiationError{Message: "provider unavailable", Err: err}
	}

	if !env.Success {
		log.Error("PhonePe rejected payment",
			zap.Int("http_status", status),
			zap.String("code", env.Code),
			zap.String("message", env.Message),
		)
		msg := env.Message
		if msg == "" {
			msg = "payment initiation rejected"
		}
		return nil, &PaymentInitiationError{Code: env.Code, Message: msg}
	}

	var data payResponseData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		log.Error("Failed decoding PhonePe pay response", zap.Error(err))
		return nil, &PaymentInitiationError{Message: "malformed provider response", Err: err}
	}

	redirect := data.InstrumentResponse.RedirectInfo.URL
	if redirect == "" {
		log.Error("PhonePe response has no redirect url", zap.String("code", env.Code))
		return nil, &PaymentInitiationError{Code: env.Code, Message: "provider returned no redirect url"}
	}

	txnID := data.MerchantTransactionID
	if txnID == "" {
		txnID = req.OrderID
	}

	log.Info("PhonePe payment initiated", zap.String("code", env.Code))

	return &InitiateResult{
		RedirectURL:           redirect,
		ProviderTransactionID: txnID,
		Code:                  env.Code,
	}, nil
}

// ----------------- QueryStatus -----------------

func (p *phonePeGateway) QueryStatus(ctx context.Context, merchantTransactionID string) (*StatusResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("merchant_transaction_id", merchantTransactionID))

	verr := func(code, msg string, err error) error {
		return &PaymentVerificationError{
			MerchantTransactionID: merchantTransactionID,
			Code:                  code,
			Message:               msg,
			Err:                   err,
		}
	}

	if merchantTransactionID == "" {
		return nil, verr("", "merchant transaction id is required", nil)
	}

	path := statusPath(p.merchantID, merchantTransactionID)
	checksum, err := ComputeChecksum(nil, path, p.saltKey, p.saltIndex)
	if err != nil {
		return nil, verr("", "failed to sign status query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		log.Error("Failed building request", zap.Error(err))
		return nil, verr("", "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", checksum)
	req.Header.Set("X-MERCHANT-ID", p.merchantID)

	env, httpStatus, err := p.do(req)
	if err != nil {
		log.Error("PhonePe status query failed", zap.Error(err), zap.Int("http_status", httpStatus))
		return nil, verr("", "provider unavailable", err)
	}

	var data statusResponseData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			log.Error("Failed decoding PhonePe status data", zap.Error(err))
			return nil, verr(env.Code, "malformed provider response", err)
		}
	}

	if data.MerchantTransactionID != "" && data.MerchantTransactionID != merchantTransactionID {
		log.Error("PhonePe status response is for another transaction",
			zap.String("response_transaction_id", data.MerchantTransactionID),
		)
		return nil, verr(env.Code, "transaction id mismatch", nil)
	}

	status, known := normalizeStatus(env.Code, data.State, data.PaymentInstrument.Status)
	if !known {
		if !env.Success {
			log.Warn("PhonePe reported unsuccessful status query",
				zap.String("code", env.Code),
				zap.String("message", env.Message),
			)
			return nil, verr(env.Code, "provider reported unsuccessful query", nil)
		}
		status = StatusPendingVerification
	}

	log.Info("PhonePe status resolved",
		zap.String("code", env.Code),
		zap.String("state", data.State),
		zap.String("status", string(status)),
	)

	return &StatusResult{
		MerchantTransactionID: merchantTransactionID,
		ProviderPaymentID:     data.TransactionID,
		Status:                status,
		Code:                  env.Code,
		State:                 data.State,
		Amount:                FromMinorUnits(data.Amount),
	}, nil
}

// ----------------- Verify Callback -----------------

func (p *phonePeGateway) VerifyCallback(response, xVerify string) error {
	if !VerifyChecksum([]byte(response), "", xVerify, p.saltKey, p.saltIndex) {
		return ErrInvalidSignature
	}
	return nil
}

// do executes req and decodes the PhonePe envelope. Server errors and
// undecodable bodies are errors; a decoded success=false is not.
func (p *phonePeGateway) do(req *http.Request) (*phonePeEnvelope, int, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read phonepe response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, resp.StatusCode, fmt.Errorf("phonepe error: status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var env phonePeEnvelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode phonepe response: %w", err)
	}

	return &env, resp.StatusCode, nil
}

func normalizeStatus(code, state, instrumentStatus string) (Status, bool) {
	for _, c := range []string{code, state, instrumentStatus} {
		c = strings.ToUpper(strings.TrimSpace(c))
		switch {
		case c == "":
			continue
		case paidCodes[c]:
			return StatusPaid, true
		case failedCodes[c]:
			return StatusFailed, true
		case pendingCodes[c]:
			return StatusPendingVerification, true
		}
	}
	return "", false
}
