package main

import (
	"io"
	"strings"
	"testing"

	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

func TestRunRequiresDatabaseURL(t *testing.T) {
	err := run("  ", nil, logging.NewWithWriter("error", io.Discard))
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}
