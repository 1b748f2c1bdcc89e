package sync

import "encoding/json"

// EncodeJSON is the standard payload encoder for widget types whose data
// serializes directly. Widgets with fields that need a stable textual form
// (timestamps and the like) supply their own pair instead.
func EncodeJSON[D any](data D) ([]byte, error) {
	return json.Marshal(data)
}

// DecodeJSON is the inverse of EncodeJSON.
func DecodeJSON[D any](payload []byte) (D, error) {
	var data D
	if err := json.Unmarshal(payload, &data); err != nil {
		var zero D
		return zero, err
	}
	return data, nil
}
