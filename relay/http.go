package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/statuslog"
	"github.com/lixenwraith/statuslog/receiver"
)

// HTTPServer accepts payloads posted by receiver.HTTP and hands them to a Sink
type HTTPServer struct {
	sink    Sink
	nodeKey string
	srv     *fasthttp.Server

	payloads atomic.Uint64
	rejects  atomic.Uint64
}

// HTTPServerOption customizes an HTTPServer
type HTTPServerOption func(*HTTPServer)

// WithNodeKey rejects payloads whose node key differs from key
func WithNodeKey(key string) HTTPServerOption {
	return func(h *HTTPServer) {
		h.nodeKey = key
	}
}

// WithHTTPLogger sets the logger fasthttp reports server errors to
func WithHTTPLogger(logger fasthttp.Logger) HTTPServerOption {
	return func(h *HTTPServer) {
		h.srv.Logger = logger
	}
}

// NewHTTPServer creates an ingest server feeding sink
func NewHTTPServer(sink Sink, opts ...HTTPServerOption) *HTTPServer {
	h := &HTTPServer{sink: sink}
	h.srv = &fasthttp.Server{
		Name:               "statuslog-relay",
		Handler:            h.handle,
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: MaxFrameSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve accepts connections on ln until Shutdown
func (h *HTTPServer) Serve(ln net.Listener) error {
	return h.srv.Serve(ln)
}

// ListenAndServe listens on the TCP address addr and serves until Shutdown
func (h *HTTPServer) ListenAndServe(addr string) error {
	return h.srv.ListenAndServe(addr)
}

// Shutdown stops accepting connections and waits for open requests
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	return h.srv.ShutdownWithContext(ctx)
}

// Stats returns the number of payloads accepted and rejected
func (h *HTTPServer) Stats() (payloads, rejects uint64) {
	return h.payloads.Load(), h.rejects.Load()
}

func (h *HTTPServer) handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
		return
	}

	var p receiver.Payload
	if err := json.Unmarshal(ctx.PostBody(), &p); err != nil {
		h.rejects.Add(1)
		ctx.Error("malformed payload", fasthttp.StatusBadRequest)
		return
	}
	if h.nodeKey != "" && p.NodeKey != h.nodeKey {
		h.rejects.Add(1)
		ctx.Error("invalid node key", fasthttp.StatusUnauthorized)
		return
	}

	if err := h.dispatch(&p); err != nil {
		code := fasthttp.StatusBadGateway
		if errors.Is(err, errUnknownKind) {
			code = fasthttp.StatusBadRequest
		}
		ctx.Error(err.Error(), code)
		return
	}
	h.payloads.Add(1)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (h *HTTPServer) dispatch(p *receiver.Payload) error {
	switch p.LogType {
	case receiver.LogTypeStatus:
		h.sink.IngestStatuses(clampSeverities(p.Lines))
		return nil
	case receiver.LogTypeResult, receiver.LogTypeSnapshot:
		category := statuslog.CategoryEvent
		if p.LogType == receiver.LogTypeSnapshot {
			category = statuslog.CategorySnapshot
		}
		for _, text := range p.Texts {
			if err := h.sink.LogString(text, category); err != nil {
				return err
			}
		}
		return nil
	default:
		h.rejects.Add(1)
		return errUnknownKind
	}
}
