package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/statuslog"
)

// Log types carried in an HTTP payload
const (
	LogTypeResult   = "result"
	LogTypeSnapshot = "snapshot"
	LogTypeStatus   = "status"
)

// Payload is the JSON body posted by the HTTP receiver
type Payload struct {
	NodeKey string                 `json:"node_key,omitempty"`
	Source  string                 `json:"source,omitempty"`
	LogType string                 `json:"log_type"`
	Texts   []string               `json:"texts,omitempty"`
	Lines   []statuslog.StatusLine `json:"lines,omitempty"`
}

// HTTPConfig configures an HTTP receiver
type HTTPConfig struct {
	URL     string
	NodeKey string
	Timeout time.Duration     // per request, used when the context has no deadline
	Dial    fasthttp.DialFunc // optional custom transport
}

// HTTP posts every delivery as one JSON payload to an endpoint
type HTTP struct {
	cfg    HTTPConfig
	client *fasthttp.Client

	mu     sync.RWMutex
	source string
}

// NewHTTP creates an HTTP receiver
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("receiver: http url cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &HTTP{
		cfg: cfg,
		client: &fasthttp.Client{
			Name:         "statuslog",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
			Dial:         cfg.Dial,
		},
	}, nil
}

// Init implements statuslog.Receiver, posting the buffered lines
func (h *HTTP) Init(name string, lines []statuslog.StatusLine) {
	h.mu.Lock()
	h.source = name
	h.mu.Unlock()
	if len(lines) > 0 {
		_ = h.LogStatus(context.Background(), lines)
	}
}

// LogString implements statuslog.Receiver
func (h *HTTP) LogString(ctx context.Context, text string) error {
	return h.post(ctx, Payload{LogType: LogTypeResult, Texts: []string{text}})
}

// LogSnapshot implements statuslog.SnapshotReceiver
func (h *HTTP) LogSnapshot(ctx context.Context, text string) error {
	return h.post(ctx, Payload{LogType: LogTypeSnapshot, Texts: []string{text}})
}

// LogStatus implements statuslog.Receiver
func (h *HTTP) LogStatus(ctx context.Context, lines []statuslog.StatusLine) error {
	if len(lines) == 0 {
		return nil
	}
	return h.post(ctx, Payload{LogType: LogTypeStatus, Lines: lines})
}

func (h *HTTP) post(ctx context.Context, p Payload) error {
	h.mu.RLock()
	p.Source = h.source
	h.mu.RUnlock()
	p.NodeKey = h.cfg.NodeKey

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("receiver: failed to encode %s payload: %w", p.LogType, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(h.cfg.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBodyRaw(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(h.cfg.Timeout)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("receiver: post to '%s' failed: %w", h.cfg.URL, err)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("receiver: post to '%s' returned status %d", h.cfg.URL, code)
	}
	return nil
}
