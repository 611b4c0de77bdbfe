package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[WARN] [req_id=abc] failed 3", formatLog("WARN", "abc", "", "failed %d", 3))
	assert.Equal(t, "[INFO] [req_id=abc] [user=u1] ok", formatLog("INFO", "abc", "u1", "ok"))
	assert.Equal(t, "[INFO] ok", formatLog("INFO", "", "", "ok"))
}

func TestWithContext_WritesIDs(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)

	ctx := WithUserID(WithRequestID(context.Background(), "r1"), "u1")
	WarnWithContext(ctx, "undo of %s failed", "c1")
	Debug(false, "hidden")

	assert.Equal(t, "[WARN] [WARN] [req_id=r1] [user=u1] undo of c1 failed\n", buf.String())
}
