package util

import (
	"strings"
	"testing"
)

func TestTruncateLog_ShortString(t *testing.T) {
	input := "short log"
	if result := TruncateLog(input, DefaultLogMaxLen); result != input {
		t.Errorf("TruncateLog() should not truncate short strings, got %q", result)
	}
}

func TestTruncateLog_ExactLimit(t *testing.T) {
	input := "12345678901234567890"
	if result := TruncateLog(input, 20); result != input {
		t.Errorf("TruncateLog() should not truncate at exact limit, got %q", result)
	}
}

func TestTruncateLog_LongString(t *testing.T) {
	result := TruncateLog("1234567890abcdefghij", 10)
	if result != "1234567890... [truncated, 20 bytes total]" {
		t.Errorf("TruncateLog() = %q", result)
	}
}

func TestTruncateLog_NegativeLimit(t *testing.T) {
	if result := TruncateLog("abc", -1); result != "... [truncated, 3 bytes total]" {
		t.Errorf("TruncateLog() = %q", result)
	}
}

func TestTruncateLog_DefaultLimit(t *testing.T) {
	input := strings.Repeat("x", 2000)
	result := TruncateLog(input, DefaultLogMaxLen)
	if result[:DefaultLogMaxLen] != input[:DefaultLogMaxLen] {
		t.Error("TruncateLog() should preserve first DefaultLogMaxLen bytes")
	}
	if !strings.HasSuffix(result, "[truncated, 2000 bytes total]") {
		t.Errorf("unexpected suffix: %q", result[DefaultLogMaxLen:])
	}
}

func TestTruncateMessage(t *testing.T) {
	msg := TruncateMessage(strings.Repeat("e", 1000))
	if !strings.HasPrefix(msg, strings.Repeat("e", DefaultMessageMaxLen)+"...") {
		t.Errorf("TruncateMessage() did not cut at %d", DefaultMessageMaxLen)
	}
}
