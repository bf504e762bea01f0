package fetch

import (
	"strings"
	"testing"
)

func TestURLValidatorValidate(t *testing.T) {
	v := NewURLValidator()

	tests := []struct {
		name    string
		url     string
		wantErr string // substring, "" means valid
	}{
		{"public https", "https://example.com/careers", ""},
		{"public http", "http://example.com", ""},
		{"ftp scheme", "ftp://example.com/file", "unsupported scheme"},
		{"file scheme", "file:///etc/passwd", "unsupported scheme"},
		{"localhost", "http://localhost:8080/admin", "blocked host"},
		{"gcp metadata hostname", "http://metadata.google.internal/computeMetadata", "blocked host"},
		{"loopback ip", "http://127.0.0.1/secret", "loopback"},
		{"ipv6 loopback", "http://[::1]/secret", "loopback"},
		{"private 10.x", "http://10.0.0.5/internal", "private IP"},
		{"private 192.168.x", "http://192.168.1.1/router", "private IP"},
		{"private 172.16.x", "http://172.16.0.1", "private IP"},
		{"cloud metadata ip", "http://169.254.169.254/latest/meta-data", "link-local"},
		{"unspecified", "http://0.0.0.0/", "unspecified"},
		{"ipv6 mapped loopback", "http://[::ffff:127.0.0.1]/", "loopback"},
		{"empty host", "http:///path", "empty hostname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.url)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate(%q) = %v, want nil", tt.url, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate(%q) = nil, want error containing %q", tt.url, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate(%q) = %v, want error containing %q", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestURLValidatorAllowPrivate(t *testing.T) {
	v := NewURLValidator()
	v.allowPrivate = true

	if err := v.Validate("http://127.0.0.1:8080/page"); err != nil {
		t.Errorf("Validate() with allowPrivate = %v, want nil", err)
	}
	// Blocked hostnames stay blocked regardless.
	if err := v.Validate("http://metadata.google.internal/"); err == nil {
		t.Error("Validate() allowed a blocked hostname with allowPrivate set")
	}
}
