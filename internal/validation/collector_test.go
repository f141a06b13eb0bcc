package validation

import "testing"

func TestIsValidCollectorInfo(t *testing.T) {
	tests := []struct {
		name  string
		info  string
		valid bool
	}{
		{
			name:  "single word name",
			info:  "Ram - +919876543210",
			valid: true,
		},
		{
			name:  "multi word name",
			info:  "Collector Ram Kumar - +919876543210",
			valid: true,
		},
		{
			name:  "missing separator",
			info:  "Collector Ram +919876543210",
			valid: false,
		},
		{
			name:  "short phone",
			info:  "Collector Ram - +91987654321",
			valid: false,
		},
		{
			name:  "no country code",
			info:  "Collector Ram - 9876543210",
			valid: false,
		},
		{
			name:  "digits in name",
			info:  "Collector 7 - +919876543210",
			valid: false,
		},
		{
			name:  "empty string",
			info:  "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidCollectorInfo(tt.info)
			if got != tt.valid {
				t.Fatalf("IsValidCollectorInfo(%q) = %v, want %v", tt.info, got, tt.valid)
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{
			name:  "valid phone",
			phone: "+919876543210",
			valid: true,
		},
		{
			name:  "too long",
			phone: "+9198765432100",
			valid: false,
		},
		{
			name:  "wrong prefix",
			phone: "+799876543210",
			valid: false,
		},
		{
			name:  "contains letters",
			phone: "+91987654321a",
			valid: false,
		},
		{
			name:  "empty string",
			phone: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidPhone(tt.phone)
			if got != tt.valid {
				t.Fatalf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.valid)
			}
		})
	}
}
