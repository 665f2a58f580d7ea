package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dORM/rpc/common"
)

func clientConfig(endpoint string, retries int) common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{endpoint},
			RetryCount: retries,
		},
	}
}

func TestSendRetriesWithFullBody(t *testing.T) {
	payload := []byte("request payload")
	var attempts atomic.Int32
	var retriedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body failed: %v", err)
		}

		// first attempt fails, the retry must carry the complete body again
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		retriedBody = body
		_, _ = w.Write(body)
	}))
	defer server.Close()

	transport := NewHttpClientTransport()
	if err := transport.Connect(clientConfig(server.URL, 3)); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer transport.Close()

	resp, err := transport.Send(42, payload)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
	if !bytes.Equal(retriedBody, payload) {
		t.Errorf("retried request body truncated: got %q, want %q", retriedBody, payload)
	}
	if !bytes.Equal(resp, payload) {
		t.Errorf("unexpected response: got %q, want %q", resp, payload)
	}
}

func TestSendWithZeroRetryCountSendsOnce(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	transport := NewHttpClientTransport()
	if err := transport.Connect(clientConfig(server.URL, 0)); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer transport.Close()

	resp, err := transport.Send(1, []byte("ping"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "ok" {
		t.Errorf("unexpected response: %q", resp)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
}
