package compat

import (
	"fmt"

	"github.com/lixenwraith/statuslog"
)

// Builder hands out gnet and fasthttp adapters that turn framework log calls
// into status lines on one shared status logger
type Builder struct {
	logger *statuslog.Logger
	logCfg *statuslog.Config
	err    error
}

// NewBuilder returns an empty Builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithLogger makes every adapter feed l. It takes precedence over WithConfig.
func (b *Builder) WithLogger(l *statuslog.Logger) *Builder {
	if l == nil {
		b.err = fmt.Errorf("statuslog/compat: provided logger cannot be nil")
		return b
	}
	b.logger = l
	return b
}

// WithConfig sets the config of the status logger built on first use when no
// logger was given
func (b *Builder) WithConfig(cfg *statuslog.Config) *Builder {
	b.logCfg = cfg
	return b
}

// getLogger returns the shared status logger, building it once
func (b *Builder) getLogger() (*statuslog.Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.logger != nil {
		return b.logger, nil
	}

	l := statuslog.NewLogger(nil)
	cfg := b.logCfg
	if cfg == nil {
		cfg = statuslog.DefaultConfig()
	}
	if err := l.ApplyConfig(cfg); err != nil {
		return nil, err
	}

	b.logger = l
	return l, nil
}

// BuildGnet returns an adapter for gnet.WithLogger
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(l, opts...), nil
}

// BuildFastHTTP returns an adapter for fasthttp.Server.Logger
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(l, opts...), nil
}

// GetLogger returns the status logger the adapters write to
func (b *Builder) GetLogger() (*statuslog.Logger, error) {
	return b.getLogger()
}

// A relay core routes both ingest servers' own diagnostics into the status
// logger that also receives the forwarded lines:
//
//	core := statuslog.Default()
//	adapters := compat.NewBuilder().WithLogger(core)
//
//	gl, _ := adapters.BuildGnet()
//	srv := relay.NewServer("tcp://:9700", core, relay.WithServerLogger(gl))
//	go srv.Run()
//
//	hl, _ := adapters.BuildFastHTTP()
//	httpIngest := relay.NewHTTPServer(core, relay.WithHTTPLogger(hl))
//	go httpIngest.ListenAndServe(":9701")
