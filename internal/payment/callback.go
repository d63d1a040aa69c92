package payment

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

var ErrMalformedCallback = errors.New("malformed callback payload")

// MerchantTransactionID extracts the transaction id from the base64 encoded
// response. Only the identifier is read; the stated payment state is ignored.
func (b CallbackBody) MerchantTransactionID() (string, error) {
	raw, err := base64.StdEncoding.DecodeString(b.Response)
	if err != nil {
		return "", ErrMalformedCallback
	}

	var env phonePeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", ErrMalformedCallback
	}

	var data struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", ErrMalformedCallback
		}
	}
	return data.MerchantTransactionID, nil
}
