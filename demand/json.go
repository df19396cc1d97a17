package demand

import (
	"encoding/json"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/validation"
)

// UnmarshalAnalytics decodes and validates a JSON ProductAnalytics payload.
func UnmarshalAnalytics(data []byte) (ProductAnalytics, error) {
	var v ProductAnalytics
	if err := json.Unmarshal(data, &v); err != nil {
		return ProductAnalytics{}, errors.InvalidRecord(0, "malformed json").WithCause(err)
	}
	if err := validation.ValidateRecord(v); err != nil {
		return ProductAnalytics{}, err
	}
	return v, nil
}

// MarshalDemand encodes a ProductDemand as JSON.
func MarshalDemand(v ProductDemand) ([]byte, error) {
	return json.Marshal(v)
}
