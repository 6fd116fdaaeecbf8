package lens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"LensPeer/internal/contact"
	xerrors "LensPeer/internal/errors"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: baseURL, AuthToken: "test-token", PageSize: 10})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestFetchCandidatesParsesProfiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var body struct {
			Variables struct {
				Request struct {
					Limit int `json:"limit"`
				} `json:"request"`
			} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Variables.Request.Limit != 10 {
			t.Errorf("expected limit 10, got %d", body.Variables.Request.Limit)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"explorePublications":{"items":[
            {"id":"0x01","by":{"handle":{"fullHandle":"alice.lens"},"name":"Alice",
             "stats":{"totalFollowers":500,"totalFollowing":20},"interests":["art","defi"]}},
            {"id":"0x02","by":{"handle":{"fullHandle":"bob.lens"},"name":"Bob",
             "stats":{"totalFollowers":5,"totalFollowing":100},"interests":[]}}
        ]}}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	candidates, err := client.FetchCandidates(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.ProfileID != "0x01" || first.Handle != "alice.lens" {
		t.Fatalf("unexpected first candidate: %+v", first)
	}
	if first.Followers != 500 || first.Following != 20 || first.InterestCount != 2 {
		t.Fatalf("unexpected stats: %+v", first)
	}
	if first.DeliveryContext.MessageEndpoint != server.URL+"/messages/send" {
		t.Fatalf("unexpected message endpoint: %s", first.DeliveryContext.MessageEndpoint)
	}
	if first.DeliveryContext.AuthToken != "test-token" {
		t.Fatalf("delivery context should carry the credential")
	}
}

func TestFetchCandidatesClassifiesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchCandidates(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if xerrors.CodeOf(err) != CodeSourceUnavailable {
		t.Fatalf("expected SOURCE_UNAVAILABLE, got %s", xerrors.CodeOf(err))
	}
	if !xerrors.RetryableError(err) {
		t.Fatalf("source unavailability must be retryable")
	}
}

func TestFetchCandidatesClassifiesMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchCandidates(context.Background())
	if xerrors.CodeOf(err) != CodeSourceMalformed {
		t.Fatalf("expected SOURCE_MALFORMED, got %v", err)
	}
	if xerrors.RetryableError(err) {
		t.Fatalf("malformed payload must not be retryable")
	}
}

func TestSendMessageSuccess(t *testing.T) {
	var got struct {
		ProfileID string `json:"profile_id"`
		Message   string `json:"message"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode send payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.SendMessage(context.Background(), "0x01", "hello", contact.DeliveryContext{
		MessageEndpoint: server.URL + "/messages/send",
		AuthToken:       "test-token",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.ProfileID != "0x01" || got.Message != "hello" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSendMessageErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		wantCode  xerrors.Code
		retryable bool
	}{
		{http.StatusBadRequest, CodeDeliveryRejected, false},
		{http.StatusUnauthorized, CodeDeliveryUnauthorized, false},
		{http.StatusForbidden, CodeDeliveryUnauthorized, false},
		{http.StatusTooManyRequests, CodeDeliveryTransient, true},
		{http.StatusInternalServerError, CodeDeliveryTransient, true},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))

		client := newTestClient(t, server.URL)
		err := client.SendMessage(context.Background(), "0x01", "hello", contact.DeliveryContext{})
		server.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if xerrors.CodeOf(err) != tc.wantCode {
			t.Fatalf("status %d: expected %s, got %s", tc.status, tc.wantCode, xerrors.CodeOf(err))
		}
		if xerrors.RetryableError(err) != tc.retryable {
			t.Fatalf("status %d: retryable mismatch", tc.status)
		}
	}
}

func TestSendMessageFallsBackToClientEndpoint(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/messages/send" {
			hit = true
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.SendMessage(context.Background(), "0x01", "hello", contact.DeliveryContext{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !hit {
		t.Fatalf("expected fallback to the client's own endpoint")
	}
}
