// Package types holds the wire-level data model shared by the zipper and
// sfn sides of the broker: handshake messages, request/response headers and
// the body-format tag that governs how a stream's payload is framed.
package types

// BodyFormat tags how the body following a headers frame is encoded on the
// wire.
type BodyFormat string

const (
	// BodyFormatNull means the stream carries no body at all.
	BodyFormatNull BodyFormat = "null"
	// BodyFormatBytes means the body is a single length-prefixed blob.
	BodyFormatBytes BodyFormat = "bytes"
	// BodyFormatChunk means the body is zero or more length-prefixed blobs
	// followed by a zero-length terminator frame.
	BodyFormatChunk BodyFormat = "chunk"
)

// HandshakeRequest is sent once by an SFN client over the first bidi stream
// of a new QUIC connection to bind a name and present a credential.
type HandshakeRequest struct {
	SfnName    string `json:"sfn_name"`
	Credential string `json:"credential"`
}

// HandshakeResponse is the zipper's single reply to a HandshakeRequest.
type HandshakeResponse struct {
	StatusCode uint16 `json:"status_code"`
	ErrorMsg   string `json:"error_msg"`
}

const (
	// StatusOK mirrors http.StatusOK without importing net/http into the
	// wire-protocol package.
	StatusOK = 200
	// StatusBadRequest is returned for an empty sfn_name.
	StatusBadRequest = 400
	// StatusUnauthorized is returned for a credential mismatch.
	StatusUnauthorized = 401
	// StatusNotFound is returned when a request names an unregistered sfn.
	StatusNotFound = 404
	// StatusInternalError covers every other forwarding failure.
	StatusInternalError = 500
)

// RequestHeaders is the first frame written to a downstream stream once a
// connector has been resolved. It is produced once per external request and
// never mutated as it traverses the pipeline.
type RequestHeaders struct {
	SfnName    string     `json:"sfn_name"`
	TraceID    string     `json:"trace_id"`
	RequestID  string     `json:"request_id"`
	BodyFormat BodyFormat `json:"body_format"`
	Extension  string     `json:"extension"`
}

// ResponseHeaders is the SFN's first frame on a response stream.
type ResponseHeaders struct {
	StatusCode uint16     `json:"status_code"`
	ErrorMsg   string     `json:"error_msg"`
	BodyFormat BodyFormat `json:"body_format"`
	Extension  string     `json:"extension"`
}
