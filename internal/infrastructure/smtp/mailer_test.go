package smtp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage_Headers(t *testing.T) {
	msg := string(buildMessage("noreply@x.com", "a@x.com", "Reset Your Password", "<p>hi</p>"))

	assert.True(t, strings.HasPrefix(msg, "From: noreply@x.com\r\nTo: a@x.com\r\n"))
	assert.Contains(t, msg, "Subject: Reset Your Password\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=\"utf-8\"\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))
}

func TestBuildMessage_EncodesNonASCIISubject(t *testing.T) {
	msg := string(buildMessage("f@x.com", "t@x.com", "Bestätigen", "x"))
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
}
