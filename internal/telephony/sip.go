package telephony

import (
	"fmt"
	"regexp"
	"strings"
)

// Outbound survey calls are placed through a SIP trunk: the media gateway
// dials sip:<E.164>@<trunk-domain> and bridges the agent onto the leg.
//
// IMPORTANT:
// - Keep this free of business logic. It only builds and checks dial targets;
//   decisions about who to call belong to internal/campaign.

var e164Re = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidE164 reports whether number is a plausible E.164 phone number.
func ValidE164(number string) bool {
	return e164Re.MatchString(strings.TrimSpace(number))
}

// BuildSIPTarget renders the outbound dial URI for a phone number on a trunk.
func BuildSIPTarget(number, trunkDomain string) (string, error) {
	number = strings.TrimSpace(number)
	trunkDomain = strings.TrimSpace(trunkDomain)
	if !ValidE164(number) {
		return "", fmt.Errorf("telephony: invalid E.164 number %q", number)
	}
	if trunkDomain == "" {
		return "", fmt.Errorf("telephony: trunk domain required")
	}
	return fmt.Sprintf("sip:%s@%s", number, trunkDomain), nil
}

// ParseSIPTarget splits a dial URI back into number and trunk domain.
func ParseSIPTarget(target string) (number, trunkDomain string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(target), "sip:")
	if !ok {
		return "", "", fmt.Errorf("telephony: not a sip uri: %q", target)
	}
	number, trunkDomain, ok = strings.Cut(rest, "@")
	if !ok || number == "" || trunkDomain == "" {
		return "", "", fmt.Errorf("telephony: malformed sip uri: %q", target)
	}
	return number, trunkDomain, nil
}
