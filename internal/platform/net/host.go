// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package net holds address helpers shared by config validation and the
// outbound clients.
package net

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeHost validates a bare host and returns its lowercase ASCII form.
// Internationalised names are converted with IDNA lookup rules.
func NormalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	switch {
	case strings.Contains(host, "://"):
		return "", fmt.Errorf("host must not include scheme: %s", raw)
	case strings.Contains(host, "/"):
		return "", fmt.Errorf("host must not include path: %s", raw)
	case strings.Contains(host, "@"):
		return "", fmt.Errorf("host must not include userinfo: %s", raw)
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return "", fmt.Errorf("host must not include port: %s", raw)
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(ip.String()), nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	return strings.ToLower(ascii), nil
}

// BrokerURL turns an MQTT broker setting ("host", "host:port" or a full
// URL) into a tcp URL paho accepts.
func BrokerURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("broker is empty")
	}
	scheme := "tcp"
	if i := strings.Index(s, "://"); i >= 0 {
		switch strings.ToLower(s[:i]) {
		case "mqtt", "tcp":
		case "mqtts", "ssl", "tls":
			scheme = "ssl"
		case "ws", "wss":
			scheme = strings.ToLower(s[:i])
		default:
			return "", fmt.Errorf("unsupported broker scheme %q", s[:i])
		}
		s = s[i+3:]
	}
	s = strings.TrimSuffix(s, "/")

	hostPart, port := s, ""
	if h, p, err := net.SplitHostPort(s); err == nil {
		hostPart, port = h, p
	}
	host, err := NormalizeHost(hostPart)
	if err != nil {
		return "", err
	}
	if port == "" {
		switch scheme {
		case "ssl":
			port = "8883"
		case "ws":
			port = "80"
		case "wss":
			port = "443"
		default:
			port = "1883"
		}
	}
	return scheme + "://" + net.JoinHostPort(host, port), nil
}
