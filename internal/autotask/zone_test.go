package autotask

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/totalcareit/partner-metrics/internal/utils"
)

func TestZoneResolverSendsUserHeader(t *testing.T) {
	var seen *http.Request
	resolver := NewZoneResolver("", newTestClient(func(req *http.Request) (*http.Response, error) {
		seen = req
		return jsonResponse(http.StatusOK, zoneBody), nil
	}))

	info, err := resolver.Resolve(context.Background(), testCreds)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if info.BaseURL != "https://webservices5.autotask.net" || info.ZoneName != "America East 5" {
		t.Fatalf("unexpected zone info: %+v", info)
	}
	if seen.Method != http.MethodGet || seen.Header.Get("UserName") != testCreds.Username {
		t.Fatalf("unexpected request: %s %v", seen.Method, seen.Header)
	}
	if seen.URL.Query().Get("user") != testCreds.Username || seen.URL.Host != "webservices.autotask.net" {
		t.Fatalf("unexpected zone url %s", seen.URL)
	}
	if seen.Header.Get("Secret") != "" {
		t.Fatalf("zone lookup must not send the secret")
	}
}

func TestZoneResolverRejectsMissingCredentials(t *testing.T) {
	called := false
	resolver := NewZoneResolver("", newTestClient(func(*http.Request) (*http.Response, error) {
		called = true
		return jsonResponse(http.StatusOK, zoneBody), nil
	}))
	_, err := resolver.Resolve(context.Background(), Credentials{Username: "only-user"})
	if !utils.IsKind(err, utils.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if called {
		t.Fatalf("no request should be sent without credentials")
	}
}

func TestZoneResolverNetworkFailures(t *testing.T) {
	failing := NewZoneResolver("", newTestClient(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: no route to host")
	}))
	if _, err := failing.Resolve(context.Background(), testCreds); !utils.IsKind(err, utils.KindNetwork) {
		t.Fatalf("expected network error for transport failure, got %v", err)
	}

	rejected := NewZoneResolver("", newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"errors":["bad user"]}`), nil
	}))
	_, err := rejected.Resolve(context.Background(), testCreds)
	if !utils.IsKind(err, utils.KindNetwork) {
		t.Fatalf("expected network error for non-2xx, got %v", err)
	}
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Msg != "zone info request returned 401" {
		t.Fatalf("expected status in message, got %v", err)
	}

	empty := NewZoneResolver("", newTestClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{}`), nil
	}))
	if _, err := empty.Resolve(context.Background(), testCreds); !utils.IsKind(err, utils.KindNetwork) {
		t.Fatalf("expected network error for empty url, got %v", err)
	}
}

func TestNormaliseBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://webservices5.autotask.net/ATServicesRest/": "https://webservices5.autotask.net",
		"https://webservices5.autotask.net/atservicesrest":  "https://webservices5.autotask.net",
		"https://webservices5.autotask.net/":                "https://webservices5.autotask.net",
		"  ":                                                "",
	}
	for in, want := range cases {
		if got := normaliseBaseURL(in); got != want {
			t.Fatalf("normaliseBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
