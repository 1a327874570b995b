package main

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/patrickwarner/adkit/internal/geoip"
	"github.com/patrickwarner/adkit/internal/logic"
	"go.uber.org/zap"
)

type AnonymizeIPInput struct {
	IP string `json:"ip"`
}

type AnonymizeIPOutput struct {
	Valid      bool   `json:"valid"`
	Anonymized string `json:"anonymized,omitempty"`
}

type UserAgentInput struct {
	UserAgent string `json:"user_agent"`
}

type UserAgentOutput struct {
	Anonymized  string                 `json:"anonymized"`
	Common      bool                   `json:"common"`
	Blacklisted bool                   `json:"blacklisted"`
	Profile     logic.UserAgentProfile `json:"profile"`
}

type PerformanceInput struct {
	Revenue     float64 `json:"revenue"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
}

type PerformanceOutput struct {
	ECPM float64 `json:"ecpm"`
	CTR  float64 `json:"ctr"`
}

type GeolocateInput struct {
	IP string `json:"ip"`
}

type GeolocateOutput struct {
	Found    bool            `json:"found"`
	Location *geoip.Location `json:"location,omitempty"`
}

type ParseDateInput struct {
	Date     string `json:"date"`
	Timezone string `json:"timezone,omitempty"`
}

type ParseDateOutput struct {
	Valid bool   `json:"valid"`
	Date  string `json:"date,omitempty"`
	AdDay string `json:"ad_day"`
}

// ToolServer exposes the ad helpers as MCP tools.
type ToolServer struct {
	ips       logic.IPAnonymizer
	uas       logic.UserAgentAnonymizer
	blacklist []*regexp.Regexp
	geo       geoip.Locator
	adDay     *time.Location
	logger    *zap.Logger
}

func (s *ToolServer) AnonymizeIP(ctx context.Context, req *mcp.CallToolRequest, input AnonymizeIPInput) (*mcp.CallToolResult, AnonymizeIPOutput, error) {
	anon, ok := s.ips.Anonymize(input.IP)
	return nil, AnonymizeIPOutput{Valid: ok, Anonymized: anon}, nil
}

func (s *ToolServer) AnonymizeUserAgent(ctx context.Context, req *mcp.CallToolRequest, input UserAgentInput) (*mcp.CallToolResult, UserAgentOutput, error) {
	return nil, UserAgentOutput{
		Anonymized:  s.uas.Anonymize(input.UserAgent),
		Common:      s.uas.IsCommon(input.UserAgent),
		Blacklisted: logic.IsBlacklistedUserAgent(input.UserAgent, s.blacklist...),
		Profile:     logic.ResolveUserAgentProfile(input.UserAgent),
	}, nil
}

func (s *ToolServer) CalculatePerformance(ctx context.Context, req *mcp.CallToolRequest, input PerformanceInput) (*mcp.CallToolResult, PerformanceOutput, error) {
	return nil, PerformanceOutput{
		ECPM: logic.CalculateECPM(input.Revenue, input.Impressions),
		CTR:  logic.CalculateCTR(input.Clicks, input.Impressions),
	}, nil
}

func (s *ToolServer) Geolocate(ctx context.Context, req *mcp.CallToolRequest, input GeolocateInput) (*mcp.CallToolResult, GeolocateOutput, error) {
	loc := geoip.GetGeolocation(s.geo, input.IP)
	return nil, GeolocateOutput{Found: loc != nil, Location: loc}, nil
}

func (s *ToolServer) ParseDate(ctx context.Context, req *mcp.CallToolRequest, input ParseDateInput) (*mcp.CallToolResult, ParseDateOutput, error) {
	loc := s.adDay
	if input.Timezone != "" {
		tz, err := time.LoadLocation(input.Timezone)
		if err != nil {
			return nil, ParseDateOutput{}, fmt.Errorf("unknown timezone %q: %w", input.Timezone, err)
		}
		loc = tz
	}

	out := ParseDateOutput{AdDay: logic.GetAdDay(loc).Format(time.RFC3339)}
	if t, ok := logic.ParseDateString(input.Date); ok {
		out.Valid = true
		out.Date = t.Format(time.RFC3339)
	}
	return nil, out, nil
}

func stringProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

// register adds every tool to server. geolocate is only offered when a
// locator is configured.
func (s *ToolServer) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "anonymize_ip",
		Description: "Zero the host part of an IPv4 or IPv6 address",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"ip": stringProp("IPv4 or IPv6 address")},
			"required":   []string{"ip"},
		},
	}, s.AnonymizeIP)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "anonymize_user_agent",
		Description: "Anonymize a User-Agent and report whether it is common or blacklisted",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"user_agent": stringProp("User-Agent header value")},
			"required":   []string{"user_agent"},
		},
	}, s.AnonymizeUserAgent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "calculate_performance",
		Description: "Compute eCPM and CTR (percent) from revenue, impressions and clicks",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"revenue": map[string]interface{}{
					"type":        "number",
					"description": "Revenue earned",
				},
				"impressions": map[string]interface{}{
					"type":        "integer",
					"minimum":     0,
					"description": "Impressions served",
				},
				"clicks": map[string]interface{}{
					"type":        "integer",
					"minimum":     0,
					"description": "Clicks received",
				},
			},
			"required": []string{"impressions"},
		},
	}, s.CalculatePerformance)

	if s.geo != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "geolocate",
			Description: "Look up country, region, DMA and city for an IP address",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"ip": stringProp("IPv4 or IPv6 address")},
				"required":   []string{"ip"},
			},
		}, s.Geolocate)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_date",
		Description: "Parse a YYYY-MM-DD date and report the current ad day",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"date":     stringProp("Date in YYYY-MM-DD form"),
				"timezone": stringProp("IANA timezone for the ad day (optional, defaults to AD_DAY_TIMEZONE)"),
			},
		},
	}, s.ParseDate)
}
