package version

import (
	"strings"
	"testing"
)

func TestFull(t *testing.T) {
	if got := Full(); !strings.Contains(got, "wai version") {
		t.Errorf("Full() = %q, want it to mention the binary name", got)
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if !strings.HasPrefix(ua, "wai/") {
		t.Errorf("UserAgent() = %q, want wai/ prefix", ua)
	}
	if !strings.Contains(ua, Version) {
		t.Errorf("UserAgent() = %q, want it to embed version %q", ua, Version)
	}
}
