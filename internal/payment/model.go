package payment

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the internal payment vocabulary shared with orders.
type Status string

const (
	StatusUnpaid              Status = "unpaid"
	StatusPendingVerification Status = "pending_verification"
	StatusPaid                Status = "paid"
	StatusFailed              Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPendingVerification, StatusPaid, StatusFailed:
		return true
	}
	return false
}

type InstrumentType string

const (
	InstrumentPayPage InstrumentType = "PAY_PAGE"
)

type InitiateRequest struct {
	OrderID        string
	Amount         decimal.Decimal
	MobileNumber   string
	MerchantUserID string
}

type InitiateResult struct {
	RedirectURL           string
	ProviderTransactionID string
	Code                  string
}

type StatusResult struct {
	MerchantTransactionID string
	ProviderPaymentID     string
	Status                Status
	Code                  string
	State                 string
	Amount                decimal.Decimal
}

// Callback is one inbound provider notification as recorded for audit.
type Callback struct {
	ID                    int64
	Provider              string
	Source                string
	MerchantTransactionID string
	Payload               json.RawMessage
	SignatureValid        bool
	Outcome               string
	ProcessError          string
	ReceivedAt            time.Time
	ProcessedAt           *time.Time
}

// ---- PhonePe wire format ----

type phonePePayload struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	MobileNumber          string            `json:"mobileNumber,omitempty"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type paymentInstrument struct {
	Type InstrumentType `json:"type"`
}

type phonePeEnvelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type payResponseData struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	InstrumentResponse    struct {
		Type         string `json:"type"`
		RedirectInfo struct {
			URL    string `json:"url"`
			Method string `json:"method"`
		} `json:"redirectInfo"`
	} `json:"instrumentResponse"`
}

type statusResponseData struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
	Amount                int64  `json:"amount"`
	State                 string `json:"state"`
	ResponseCode          string `json:"responseCode"`
	PaymentInstrument     struct {
		Type   string `json:"type"`
		Status string `json:"status"`
	} `json:"paymentInstrument"`
}

// CallbackBody is the server-to-server callback PhonePe posts: a base64
// encoded copy of the status response.
type CallbackBody struct {
	Response string `json:"response"`
}
