package validation

import "testing"

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"alice@example.com", true},
		{"a.b+c@sub.example.co", true},
		{"", false},
		{"alice", false},
		{"alice@", false},
		{"alice@example", false},
	}

	for _, tc := range tests {
		if got := ValidateEmail(tc.email); got != tc.want {
			t.Errorf("ValidateEmail(%q) = %v; want %v", tc.email, got, tc.want)
		}
	}
}

func TestValidateTicker(t *testing.T) {
	tests := []struct {
		symbol string
		want   bool
	}{
		{"AAPL", true},
		{"BRK.B", true},
		{"NOVO-B", true},
		{"aapl", false},
		{"", false},
		{"<script>", false},
	}

	for _, tc := range tests {
		if got := ValidateTicker(tc.symbol); got != tc.want {
			t.Errorf("ValidateTicker(%q) = %v; want %v", tc.symbol, got, tc.want)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Retirement  ", "Retirement"},
		{"<b>Growth</b>", "Growth"},
		{"<b>Growth</b> & Income", "Growth & Income"},
		{"Tech\x00 Fund", "Tech Fund"},
	}

	for _, tc := range tests {
		if got := SanitizeText(tc.in); got != tc.want {
			t.Errorf("SanitizeText(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateLength(t *testing.T) {
	if !ValidateLength("pässword", 8, 128) {
		t.Error("8 runes should satisfy min length 8")
	}
	if ValidateLength("short", 8, 128) {
		t.Error("5 runes should not satisfy min length 8")
	}
}
