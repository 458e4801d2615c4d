package notify

import "regexp"

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+\d{10,15}|\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}`)
)

// ScrubPII replaces emails with [EMAIL] and phone numbers with [PHONE] so
// log sinks never carry client contact details. Names are kept.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	return phoneRe.ReplaceAllString(text, "[PHONE]")
}

func scrubValue(v any) any {
	if s, ok := v.(string); ok {
		return ScrubPII(s)
	}
	return v
}
