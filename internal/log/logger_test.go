// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureAttachesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "sonox-test", Version: "v1.2.3"})
	t.Cleanup(func() { Configure(Config{Output: os.Stdout}) })

	logger := WithComponent("announce")
	logger.Debug().Str(FieldEvent, "test.event").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, buf.String())
	}
	if entry[FieldService] != "sonox-test" {
		t.Errorf("service = %v", entry[FieldService])
	}
	if entry[FieldVersion] != "v1.2.3" {
		t.Errorf("version = %v", entry[FieldVersion])
	}
	if entry[FieldComponent] != "announce" {
		t.Errorf("component = %v", entry[FieldComponent])
	}
	if entry[FieldEvent] != "test.event" {
		t.Errorf("event = %v", entry[FieldEvent])
	}
}

func TestConfigureInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "verbose-please", Output: &buf})
	t.Cleanup(func() { Configure(Config{Output: os.Stdout}) })

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("global level = %v, want info", zerolog.GlobalLevel())
	}
}

func TestConfigureWritesRotatedFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "sonox.log")
	Configure(Config{Output: &buf, File: &FileConfig{Path: path}})
	t.Cleanup(func() {
		_ = Close()
		Configure(Config{Output: os.Stdout})
	})

	l := Base()
	l.Info().Msg("to both writers")
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both writers") {
		t.Errorf("log file missing entry: %s", data)
	}
	if !strings.Contains(buf.String(), "to both writers") {
		t.Errorf("primary writer missing entry: %s", buf.String())
	}
}
