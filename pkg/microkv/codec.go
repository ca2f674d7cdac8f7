package microkv

import (
	"encoding/json"
	"fmt"
)

// Reader is implemented by everything values can be read from: the store,
// namespace handles and transactions.
type Reader interface {
	GetInto(key string, out any) error
}

// Get decodes the value stored at key into a T.
func Get[T any](r Reader, key string) (T, error) {
	var v T
	if err := r.GetInto(key, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode value: %w", ErrSerialization, err)
	}
	return data, nil
}

func decode(data []byte, out any) error {
	// json errors can quote the input, which is plaintext here
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: cannot decode value into %T", ErrSerialization, out)
	}
	return nil
}
