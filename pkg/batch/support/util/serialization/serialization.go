// Package serialization converts execution records to and from the JSON text stored in the job tables.
package serialization

import (
	"encoding/json"
	"strings"

	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
)

const module = "serialization"

// maskedParameterKeys are parameter names whose values never reach storage.
var maskedParameterKeys = []string{"apikey", "api_key", "password", "secret", "token"}

// MaskParameters returns a copy of params with sensitive values replaced by asterisks.
// Key matching is case-insensitive.
func MaskParameters(params map[string]string) map[string]string {
	masked := make(map[string]string, len(params))
	for k, v := range params {
		masked[k] = v
		lower := strings.ToLower(k)
		for _, key := range maskedParameterKeys {
			if lower == key {
				masked[k] = "********"
				break
			}
		}
	}
	return masked
}

// MarshalParameters serializes masked job parameters to a JSON object.
func MarshalParameters(params map[string]string) (string, error) {
	if len(params) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(MaskParameters(params))
	if err != nil {
		return "", exception.NewBatchError(module, "Failed to serialize job parameters", err, false, false)
	}
	return string(data), nil
}

// UnmarshalParameters deserializes a JSON object into job parameters.
func UnmarshalParameters(data string) (map[string]string, error) {
	params := map[string]string{}
	if data == "" || data == "null" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		return nil, exception.NewBatchError(module, "Failed to deserialize job parameters", err, false, false)
	}
	return params, nil
}

// MarshalExecutionContext serializes an execution context to a JSON object.
func MarshalExecutionContext(ctx map[string]interface{}) (string, error) {
	if ctx == nil {
		return "{}", nil
	}
	data, err := json.Marshal(ctx)
	if err != nil {
		return "", exception.NewBatchError(module, "Failed to serialize ExecutionContext", err, false, false)
	}
	return string(data), nil
}

// UnmarshalExecutionContext deserializes a JSON object into an execution context.
func UnmarshalExecutionContext(data string) (map[string]interface{}, error) {
	ctx := map[string]interface{}{}
	if data == "" || data == "null" {
		return ctx, nil
	}
	if err := json.Unmarshal([]byte(data), &ctx); err != nil {
		return nil, exception.NewBatchError(module, "Failed to deserialize ExecutionContext", err, false, false)
	}
	return ctx, nil
}

// MarshalFailures serializes failure messages to a JSON array.
func MarshalFailures(failures []string) (string, error) {
	if failures == nil {
		return "[]", nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return "", exception.NewBatchError(module, "Failed to serialize failures", err, false, false)
	}
	return string(data), nil
}

// UnmarshalFailures deserializes a JSON array into failure messages.
func UnmarshalFailures(data string) ([]string, error) {
	msgs := []string{}
	if data == "" || data == "null" {
		return msgs, nil
	}
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		return nil, exception.NewBatchError(module, "Failed to deserialize failures", err, false, false)
	}
	return msgs, nil
}
