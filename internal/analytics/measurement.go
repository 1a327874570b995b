package analytics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MeasurementProtocol posts events as form-encoded Measurement Protocol hits
// (v=1, tid, cid, t=event, aip=1) to a collector endpoint.
type MeasurementProtocol struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMeasurementProtocol creates a provider posting to endpoint.
func NewMeasurementProtocol(endpoint string, timeout time.Duration, logger *zap.Logger) *MeasurementProtocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeasurementProtocol{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Payload renders ev as the form values sent to the collector. Caller params
// cannot override the protocol fields.
func Payload(ev Event) url.Values {
	v := url.Values{}
	for k, val := range ev.Params {
		v.Set(k, val)
	}
	v.Set("v", "1")
	v.Set("tid", ev.TrackingID)
	v.Set("cid", ev.ClientID)
	v.Set("t", "event")
	v.Set("aip", "1")
	if ev.IP != "" {
		v.Set("uip", ev.IP)
	}
	if ev.UserAgent != "" {
		v.Set("ua", ev.UserAgent)
	}
	return v
}

// Send implements Provider.
func (m *MeasurementProtocol) Send(ctx context.Context, ev Event) error {
	if m == nil || m.endpoint == "" {
		return ErrUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, strings.NewReader(Payload(ev).Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			m.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("collector http %d: %s", resp.StatusCode, string(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
