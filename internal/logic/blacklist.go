package logic

import (
	"fmt"
	"regexp"
)

// DefaultBlacklistedUserAgents is consulted when IsBlacklistedUserAgent is
// called without patterns. It is empty unless the service configures it at
// startup.
var DefaultBlacklistedUserAgents []*regexp.Regexp

// IsBlacklistedUserAgent reports whether any pattern matches anywhere in ua.
// Without explicit patterns DefaultBlacklistedUserAgents is used.
func IsBlacklistedUserAgent(ua string, patterns ...*regexp.Regexp) bool {
	if len(patterns) == 0 {
		patterns = DefaultBlacklistedUserAgents
	}
	for _, re := range patterns {
		if re != nil && re.MatchString(ua) {
			return true
		}
	}
	return false
}

// CompileUserAgentPatterns compiles configured user agent expressions.
func CompileUserAgentPatterns(exprs []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile user agent pattern %q: %w", expr, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}
