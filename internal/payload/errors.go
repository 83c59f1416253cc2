package payload

import "errors"

// Domain errors for the payload codec.
var (
	// ErrEncodingFailed is returned when a payload fails validation or
	// cannot be marshalled for the wire.
	ErrEncodingFailed = errors.New("payload: encoding failed")

	// ErrDecodingFailed is returned when wire data is malformed, carries an
	// unknown enum token, or fails validation after unmarshalling.
	ErrDecodingFailed = errors.New("payload: decoding failed")
)
