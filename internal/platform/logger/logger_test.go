package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValueRedactsSecrets(t *testing.T) {
	if got := sanitizeValue("jwt_secret_key", "abc"); got != "[REDACTED]" {
		t.Fatalf("secret not redacted: %v", got)
	}
	if got := sanitizeValue("postgres_dsn", "postgres://u:p@h/db"); got != "[REDACTED]" {
		t.Fatalf("dsn not redacted: %v", got)
	}
	if got := sanitizeValue("city", "Berlin"); got != "Berlin" {
		t.Fatalf("plain value changed: %v", got)
	}
}

func TestSanitizeValueHashesContactNames(t *testing.T) {
	got, ok := sanitizeValue("contact_name", "Maria Anders").(string)
	if !ok || !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("unexpected hash: %v", got)
	}
	again := sanitizeValue("contact_name", "Maria Anders")
	if again != got {
		t.Fatalf("hash not stable: %v vs %v", again, got)
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"customer_id", "ALFKI", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected kvs: %v", out)
	}
}
