package validation

import "testing"

func TestIsValidRoutingNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		valid  bool
	}{
		{
			name:   "valid example 1",
			number: "021000021",
			valid:  true,
		},
		{
			name:   "valid example 2",
			number: "011401533",
			valid:  true,
		},
		{
			name:   "invalid checksum",
			number: "123456789",
			valid:  false,
		},
		{
			name:   "contains letters",
			number: "02100002a",
			valid:  false,
		},
		{
			name:   "too short",
			number: "0210000",
			valid:  false,
		},
		{
			name:   "too long",
			number: "0210000211",
			valid:  false,
		},
		{
			name:   "empty string",
			number: "",
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidRoutingNumber(tt.number)
			if got != tt.valid {
				t.Fatalf("IsValidRoutingNumber(%q) = %v, want %v", tt.number, got, tt.valid)
			}
		})
	}
}
