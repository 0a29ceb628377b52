package normalize_test

import (
	"testing"

	"github.com/dalemusser/casehub/internal/app/system/normalize"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  User@Example.COM ", "user@example.com"},
		{"plain@example.com", "plain@example.com"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := normalize.Email(tt.in); got != tt.want {
			t.Errorf("Email(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Jane   Q.  Doe ", "Jane Q. Doe"},
		{"Single", "Single"},
		{"", ""},
		{"\tTabbed\tName\t", "Tabbed Name"},
	}
	for _, tt := range tests {
		if got := normalize.Name(tt.in); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRoleAndStatus(t *testing.T) {
	if got := normalize.Role(" Admin "); got != "admin" {
		t.Errorf("Role: got %q, want %q", got, "admin")
	}
	if got := normalize.Status(" Disabled "); got != "disabled" {
		t.Errorf("Status: got %q, want %q", got, "disabled")
	}
}
