package boundary

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// IsJSON autodetects the payload encoding: a leading '{' or '[' after
// ASCII whitespace means JSON, anything else is MessagePack.
func IsJSON(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}

func decodeRequest(data []byte, v interface{}) error {
	if IsJSON(data) {
		if err := json.Unmarshal(data, v); err != nil {
			return &EncodingError{Message: "decode request", Err: errors.Wrap(err, "json")}
		}
		return nil
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return &EncodingError{Message: "decode request", Err: errors.Wrap(err, "msgpack")}
	}
	return nil
}

// encodeResponse mirrors the request's encoding.
func encodeResponse(v interface{}, request []byte) ([]byte, error) {
	if IsJSON(request) {
		out, err := json.Marshal(v)
		if err != nil {
			return nil, &EncodingError{Message: "encode response", Err: errors.Wrap(err, "json")}
		}
		return out, nil
	}
	out, err := msgpack.Marshal(v)
	if err != nil {
		return nil, &EncodingError{Message: "encode response", Err: errors.Wrap(err, "msgpack")}
	}
	return out, nil
}
