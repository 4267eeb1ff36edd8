// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpx builds the outbound HTTP clients used for the discovery
// bridge and the text input sync target.
package httpx

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4
)

type options struct {
	tracing  bool
	spanName func(operation string, r *http.Request) string
}

// Option configures NewClient.
type Option func(*options)

// WithTracing wraps the transport with otelhttp so every request becomes a
// client span and carries trace context.
func WithTracing() Option {
	return func(o *options) { o.tracing = true }
}

// WithSpanNamer overrides the client span name. Implies WithTracing.
func WithSpanNamer(fn func(operation string, r *http.Request) string) Option {
	return func(o *options) {
		o.tracing = true
		o.spanName = fn
	}
}

// NewClient returns a client with bounded dial, header and total timeouts.
func NewClient(timeout time.Duration, opts ...Option) *http.Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	dialTimeout := min(timeout, defaultDialTimeout)
	responseHeaderTimeout := min(timeout, defaultResponseHeaderTimeout)

	var transport http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
	if o.tracing {
		var topts []otelhttp.Option
		if o.spanName != nil {
			topts = append(topts, otelhttp.WithSpanNameFormatter(o.spanName))
		}
		transport = otelhttp.NewTransport(transport, topts...)
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
