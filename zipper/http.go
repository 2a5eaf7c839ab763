package zipper

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yomorun/yomo/connector"
	"github.com/yomorun/yomo/frame"
	"github.com/yomorun/yomo/idgen"
	"github.com/yomorun/yomo/types"
)

// HTTPIngress exposes the fabric to plain HTTP callers. It hands every
// request to mem (the Server's in-memory connector), then renders the
// sfn's response as a single body (/sfn/{name}) or an SSE stream
// (/sfn/{name}/sse) depending on the endpoint called, adapting http.rs's
// http_handler/CustomResponse
// pair from axum extractors to net/http plus gorilla/mux.
type HTTPIngress struct {
	mem *connector.Memory
}

// NewHTTPIngress builds an ingress over the given memory connector. The
// zipper's Server must be constructed with the same connector and have
// ServeMemory running for requests to be routed anywhere.
func NewHTTPIngress(mem *connector.Memory) *HTTPIngress {
	return &HTTPIngress{mem: mem}
}

// Router builds the gorilla/mux router exposing /sfn/{name} and
// /sfn/{name}/sse.
func (h *HTTPIngress) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/sfn/{name}", h.handleBytes).Methods(http.MethodPost)
	r.HandleFunc("/sfn/{name}/sse", h.handleSSE).Methods(http.MethodPost)
	return r
}

func newRequestHeaders(name string, hdr http.Header) types.RequestHeaders {
	return types.RequestHeaders{
		SfnName:    name,
		TraceID:    firstNonEmpty(hdr.Get("traceparent"), idgen.TraceID()),
		RequestID:  firstNonEmpty(hdr.Get("X-Request-Id"), idgen.RequestID()),
		BodyFormat: types.BodyFormatBytes,
		Extension:  hdr.Get("X-Extension"),
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// handleBytes forwards the request body as a single frame and writes back a
// single response body.
func (h *HTTPIngress) handleBytes(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	headers := newRequestHeaders(name, r.Header)

	reqR, reqW, err := h.mem.OpenNewStream()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Printf("zipper: [%s|%s] new request to [%s]: %d bytes", headers.TraceID, headers.RequestID, name, len(body))

	if err := frame.Send(reqW, headers); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := frame.SendBytes(reqW, body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = reqW.Close()

	var resp types.ResponseHeaders
	if err := frame.Receive(reqR, &resp); err != nil {
		http.Error(w, fmt.Sprintf("no response from sfn: %v", err), http.StatusBadGateway)
		return
	}

	if resp.StatusCode != types.StatusOK {
		http.Error(w, resp.ErrorMsg, int(resp.StatusCode))
		return
	}

	switch resp.BodyFormat {
	case types.BodyFormatNull:
		w.WriteHeader(http.StatusOK)
	case types.BodyFormatBytes:
		respBody, err := frame.ReceiveBytes(reqR)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(respBody)
	default:
		http.Error(w, "unexpected body format for non-streaming request", http.StatusInternalServerError)
	}
}

// handleSSE forwards the request body the same way but streams the response
// back as server-sent events, one event per chunk frame, until the
// zero-length terminator frame closes the stream.
func (h *HTTPIngress) handleSSE(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	headers := newRequestHeaders(name, r.Header)
	headers.BodyFormat = types.BodyFormatChunk

	reqR, reqW, err := h.mem.OpenNewStream()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := frame.Send(reqW, headers); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := frame.SendBytes(reqW, body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = reqW.Close()

	var resp types.ResponseHeaders
	if err := frame.Receive(reqR, &resp); err != nil {
		http.Error(w, fmt.Sprintf("no response from sfn: %v", err), http.StatusBadGateway)
		return
	}
	if resp.StatusCode != types.StatusOK {
		http.Error(w, resp.ErrorMsg, int(resp.StatusCode))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		chunk, err := frame.ReceiveBytes(reqR)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("zipper: sse chunk read error for %s: %v", name, err)
			}
			return
		}
		if len(chunk) == 0 {
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", chunk); err != nil {
			return
		}
		flusher.Flush()
	}
}
