package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"email", "contact sara.khan+wedding@example.com please", "contact [EMAIL] please"},
		{"phone", "call me at (416) 555-0199", "call me at [PHONE]"},
		{"phone with plus", "my number is +14165550199", "my number is [PHONE]"},
		{"both", "email: a@b.ca phone: 416-555-0199", "email: [EMAIL] phone: [PHONE]"},
		{"booking id kept", "9a7c3e1f-2b4d-4e6f-8a0c-123456789012", "9a7c3e1f-2b4d-4e6f-8a0c-123456789012"},
		{"name kept", "New booking from Sara Khan", "New booking from Sara Khan"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ScrubPII(tt.input))
		})
	}
}

func TestLogSinksScrubContactDetails(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)

	NewLogSink(logger).Track(context.Background(), EventLead, map[string]any{
		"email": "sara@example.com",
		"value": 294.93,
	})
	_ = NewLogNotifier(logger).Notify(context.Background(), "New booking from sara@example.com", LevelInfo)

	out := buf.String()
	assert.NotContains(t, out, "sara@example.com")
	assert.Contains(t, out, `"email":"[EMAIL]"`)
	assert.Contains(t, out, `"value":294.93`)
	assert.Contains(t, out, "New booking from [EMAIL]")
}
