package analytics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasurementProtocolSend(t *testing.T) {
	var got url.Values
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mp := NewMeasurementProtocol(srv.URL, time.Second, nil)
	err := mp.Send(context.Background(), Event{
		TrackingID: "FAKE-XXXXX-1",
		ClientID:   "cid-1",
		IP:         "127.0.0.0",
		UserAgent:  "Rare user agent",
		Params:     map[string]string{"ec": "advertising", "ea": "click", "t": "pageview"},
	})
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	assert.Equal(t, "1", got.Get("v"))
	assert.Equal(t, "FAKE-XXXXX-1", got.Get("tid"))
	assert.Equal(t, "cid-1", got.Get("cid"))
	assert.Equal(t, "event", got.Get("t"))
	assert.Equal(t, "1", got.Get("aip"))
	assert.Equal(t, "127.0.0.0", got.Get("uip"))
	assert.Equal(t, "Rare user agent", got.Get("ua"))
	assert.Equal(t, "click", got.Get("ea"))
}

func TestMeasurementProtocolHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad hit", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewMeasurementProtocol(srv.URL, time.Second, nil).Send(context.Background(), Event{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestMeasurementProtocolUnavailable(t *testing.T) {
	var mp *MeasurementProtocol
	assert.ErrorIs(t, mp.Send(context.Background(), Event{}), ErrUnavailable)
	assert.ErrorIs(t, NewMeasurementProtocol("", time.Second, nil).Send(context.Background(), Event{}), ErrUnavailable)
}

func TestPayloadOmitsEmptyVisitor(t *testing.T) {
	v := Payload(Event{TrackingID: "T", ClientID: "c"})
	assert.False(t, v.Has("uip"))
	assert.False(t, v.Has("ua"))
}
