package telephony

import "testing"

func TestBuildSIPTarget(t *testing.T) {
	got, err := BuildSIPTarget("+15551234567", "trunk.example.com")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "sip:+15551234567@trunk.example.com" {
		t.Fatalf("target = %q", got)
	}

	if _, err := BuildSIPTarget("5551234567", "trunk.example.com"); err == nil {
		t.Fatalf("expected error for non-E.164 number")
	}
	if _, err := BuildSIPTarget("+15551234567", ""); err == nil {
		t.Fatalf("expected error for missing trunk domain")
	}
}

func TestParseSIPTarget(t *testing.T) {
	num, domain, err := ParseSIPTarget("sip:+15551234567@trunk.example.com")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if num != "+15551234567" || domain != "trunk.example.com" {
		t.Fatalf("parsed %q @ %q", num, domain)
	}
	if _, _, err := ParseSIPTarget("tel:+15551234567"); err == nil {
		t.Fatalf("expected error for non-sip scheme")
	}
	if _, _, err := ParseSIPTarget("sip:nodomain"); err == nil {
		t.Fatalf("expected error for malformed uri")
	}
}

func TestValidE164(t *testing.T) {
	for num, want := range map[string]bool{
		"+15551234567":     true,
		"+442071838750":    true,
		"15551234567":      false,
		"+0123":            false,
		"+1555123456789012": false,
		"":                 false,
	} {
		if got := ValidE164(num); got != want {
			t.Fatalf("ValidE164(%q) = %v, want %v", num, got, want)
		}
	}
}
