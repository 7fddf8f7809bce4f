// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
	"testing"
)

func captureOutput(f func()) string {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer log.SetOutput(nil)
	f()
	return buf.String()
}

func TestNew(t *testing.T) {
	l := New("gateway")
	if l.Component != "gateway" {
		t.Errorf("expected component gateway, got %s", l.Component)
	}
	if l.InstanceID == "" {
		t.Error("expected non-empty instance id")
	}
}

func TestLogEmitsJSON(t *testing.T) {
	l := New("gateway")

	out := captureOutput(func() {
		l.Info("user-1", "req-1", "hello", map[string]interface{}{"k": "v"})
	})

	line := strings.TrimSpace(out)
	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v (%q)", err, line)
	}
	if entry.Level != INFO {
		t.Errorf("expected level INFO, got %s", entry.Level)
	}
	if entry.UserID != "user-1" || entry.RequestID != "req-1" {
		t.Errorf("unexpected context: %+v", entry)
	}
	if entry.Fields["k"] != "v" {
		t.Errorf("expected field k=v, got %v", entry.Fields)
	}
}

func TestErrorWithCode(t *testing.T) {
	l := New("gateway")

	out := captureOutput(func() {
		l.ErrorWithCode("user-1", "req-2", "boom", 500, nil, nil)
	})

	var entry LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry.Level != ERROR {
		t.Errorf("expected ERROR, got %s", entry.Level)
	}
	if entry.Fields["status_code"] != float64(500) {
		t.Errorf("expected status_code 500, got %v", entry.Fields["status_code"])
	}
}
