package logic

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

const chromeMacUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_13_4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/66.0.3359.181 Safari/537.36"

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"invalid-ip", "", false},
		{"", "", false},
		{"256.1.1.1", "", false},
		{"127.0.0.1", "127.0.0.0", true},
		{"127.127.127.127", "127.127.127.0", true},
		{"8.8.4.4", "8.8.4.0", true},
		{"3ffe:1900:4545:3:200:f8ff:fe21:67cf", "3ffe:1900:4545:3:200:f8ff:fe21:0", true},
		{"fe80::200:f8ff:fe21:67cf", "fe80::200:f8ff:fe21:0", true},
		{"fe80::200:f8ff:fe21:67cf%eth0", "fe80::200:f8ff:fe21:0", true},
		{"2001:db8::1", "2001:db8::", true},
		{"::ffff:10.1.2.3", "10.1.2.0", true},
	}
	for _, tt := range tests {
		got, ok := AnonymizeIP(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestIPAnonymizerMaskWidths(t *testing.T) {
	wide := IPAnonymizer{IPv4Bits: 16, IPv6Bits: 16}

	got, ok := wide.Anonymize("127.127.127.127")
	assert.True(t, ok)
	assert.Equal(t, "127.127.0.0", got)

	none := IPAnonymizer{}
	got, _ = none.Anonymize("192.0.2.55")
	assert.Equal(t, "192.0.2.55", got)

	// widths beyond the address size clamp to the whole address
	all := IPAnonymizer{IPv4Bits: 64, IPv6Bits: 256}
	got, _ = all.Anonymize("192.0.2.55")
	assert.Equal(t, "0.0.0.0", got)
	got, _ = all.Anonymize("2001:db8::1")
	assert.Equal(t, "::", got)
}

func TestAnonymizeUserAgent(t *testing.T) {
	assert.Equal(t, chromeMacUA, AnonymizeUserAgent(chromeMacUA))
	assert.Equal(t, RareUserAgent, AnonymizeUserAgent("Some rare user agent"))
	assert.Equal(t, "Rare user agent", AnonymizeUserAgent(""))

	googlebot := "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	assert.Equal(t, googlebot, AnonymizeUserAgent(googlebot))
}

func TestUserAgentAnonymizerCommonPatterns(t *testing.T) {
	a := UserAgentAnonymizer{Common: []*regexp.Regexp{regexp.MustCompile(`^ReadTheDocsApp/`)}}

	assert.Equal(t, "ReadTheDocsApp/1.2", a.Anonymize("ReadTheDocsApp/1.2"))
	assert.Equal(t, RareUserAgent, a.Anonymize("completely-bogus-ua-string-12345"))
	assert.True(t, a.IsCommon(chromeMacUA))
}
