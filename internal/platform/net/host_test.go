// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package net

import (
	"testing"
)

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"Miniserver.LAN", "miniserver.lan", false},
		{"bücher.example", "xn--bcher-kva.example", false},
		{"192.168.1.7", "192.168.1.7", false},
		{"[::1]", "::1", false},
		{"example.com.", "example.com", false},
		{"", "", true},
		{"http://example.com", "", true},
		{"example.com/path", "", true},
		{"user@example.com", "", true},
		{"example.com:1883", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeHost(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeHost(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeHost(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"broker.lan", "tcp://broker.lan:1883", false},
		{"broker.lan:1884", "tcp://broker.lan:1884", false},
		{"mqtt://192.168.1.2", "tcp://192.168.1.2:1883", false},
		{"mqtts://broker.lan", "ssl://broker.lan:8883", false},
		{"ws://broker.lan:9001/", "ws://broker.lan:9001", false},
		{"", "", true},
		{"amqp://broker.lan", "", true},
	}

	for _, tt := range tests {
		got, err := BrokerURL(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("BrokerURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("BrokerURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
