package logic

import (
	"net/netip"
	"regexp"

	"github.com/avct/uasurfer"
)

// RareUserAgent replaces user agents that are unusual enough to fingerprint
// a visitor.
const RareUserAgent = "Rare user agent"

// IPAnonymizer zeroes the low bits of an address so it still geolocates to
// the right network but no longer identifies a host.
type IPAnonymizer struct {
	IPv4Bits int // low bits zeroed in IPv4 addresses
	IPv6Bits int // low bits zeroed in IPv6 addresses
}

// DefaultIPAnonymizer clears the last octet of IPv4 addresses and the last
// 16-bit group of IPv6 addresses.
var DefaultIPAnonymizer = IPAnonymizer{IPv4Bits: 8, IPv6Bits: 16}

// AnonymizeIP anonymizes ip with DefaultIPAnonymizer.
func AnonymizeIP(ip string) (string, bool) {
	return DefaultIPAnonymizer.Anonymize(ip)
}

// Anonymize returns the masked address in canonical text form. IPv6 results
// use RFC 5952 compression. Zones are dropped and IPv4-mapped IPv6 addresses
// are masked as IPv4. The boolean is false when ip is not a valid address.
func (a IPAnonymizer) Anonymize(ip string) (string, bool) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", false
	}
	addr = addr.WithZone("").Unmap()

	bits := a.IPv6Bits
	if addr.Is4() {
		bits = a.IPv4Bits
	}
	bits = max(0, min(bits, addr.BitLen()))

	prefix, err := addr.Prefix(addr.BitLen() - bits)
	if err != nil {
		return "", false
	}
	return prefix.Addr().String(), true
}

// UserAgentAnonymizer passes common user agents through and collapses
// everything else into RareUserAgent.
type UserAgentAnonymizer struct {
	// Common lists extra patterns treated as common even when uasurfer
	// cannot name the browser, e.g. in-house apps.
	Common []*regexp.Regexp
}

// DefaultUserAgentAnonymizer recognizes whatever uasurfer recognizes.
var DefaultUserAgentAnonymizer = UserAgentAnonymizer{}

// AnonymizeUserAgent anonymizes ua with DefaultUserAgentAnonymizer.
func AnonymizeUserAgent(ua string) string {
	return DefaultUserAgentAnonymizer.Anonymize(ua)
}

// Anonymize returns ua unchanged if it is common, otherwise RareUserAgent.
func (a UserAgentAnonymizer) Anonymize(ua string) string {
	if a.IsCommon(ua) {
		return ua
	}
	return RareUserAgent
}

// IsCommon reports whether ua names a browser or crawler uasurfer knows, or
// matches one of the extra Common patterns.
func (a UserAgentAnonymizer) IsCommon(ua string) bool {
	if ua == "" {
		return false
	}
	if uasurfer.Parse(ua).Browser.Name != uasurfer.BrowserUnknown {
		return true
	}
	for _, re := range a.Common {
		if re.MatchString(ua) {
			return true
		}
	}
	return false
}
