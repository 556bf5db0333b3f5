package validation

import "testing"

func TestIsEmail(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"asha@example.com", true},
		{"first.last+tag@mail.example.in", true},
		{"  padded@example.com  ", true},
		{"", false},
		{"no-at-sign.example.com", false},
		{"missing@tld", false},
		{"Asha <asha@example.com>", false},
		{"two@@example.com", false},
		{"spaces in@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsEmail(tt.input); got != tt.want {
				t.Errorf("IsEmail(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPhoneDigits(t *testing.T) {
	tests := []struct {
		input  string
		digits string
		ok     bool
	}{
		{"9876543210", "9876543210", true},
		{"+91 98765-43210", "919876543210", true},
		{"(022) 2345.6789", "02223456789", true},
		{"1234567", "1234567", true},
		{"123456", "", false},
		{"1234567890123456", "", false},
		{"98765x43210", "", false},
		{"98+76543210", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			digits, ok := PhoneDigits(tt.input)
			if ok != tt.ok || digits != tt.digits {
				t.Errorf("PhoneDigits(%q) = (%q, %v), want (%q, %v)", tt.input, digits, ok, tt.digits, tt.ok)
			}
			if IsPhone(tt.input) != tt.ok {
				t.Errorf("IsPhone(%q) disagrees with PhoneDigits", tt.input)
			}
		})
	}
}
