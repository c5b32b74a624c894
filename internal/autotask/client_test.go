package autotask

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/totalcareit/partner-metrics/internal/utils"
)

type fakeAutotask struct {
	zoneCalls  atomic.Int32
	apiCalls   atomic.Int32
	zoneStatus atomic.Int32
	mu         sync.Mutex
	requests   []*http.Request
	bodies     []string
	respond    func(*http.Request) *http.Response
}

func (f *fakeAutotask) roundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/zoneInformation") {
		f.zoneCalls.Add(1)
		if status := f.zoneStatus.Load(); status != 0 {
			return jsonResponse(int(status), "zone unavailable"), nil
		}
		return jsonResponse(http.StatusOK, zoneBody), nil
	}
	f.apiCalls.Add(1)
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req), nil
	}
	return jsonResponse(http.StatusOK, `{"items":[],"pageDetails":{"count":0}}`), nil
}

func newFakeClient(f *fakeAutotask, cache *stubCache, mutate ...func(*Options)) *Client {
	opts := Options{
		Credentials: testCreds,
		HTTPClient:  newTestClient(f.roundTrip),
	}
	if cache != nil {
		opts.Cache = cache
	}
	for _, m := range mutate {
		m(&opts)
	}
	return NewClient(opts)
}

func TestQuerySendsHeadersAndFilter(t *testing.T) {
	fake := &fakeAutotask{}
	client := newFakeClient(fake, newStubCache())

	filter := &Filter{Conditions: []Condition{{Field: "status", Op: OpEq, Value: 1}}}
	if _, err := client.Query(context.Background(), EntityTickets, filter); err != nil {
		t.Fatalf("query: %v", err)
	}
	if fake.apiCalls.Load() != 1 {
		t.Fatalf("expected one api call, got %d", fake.apiCalls.Load())
	}
	req := fake.requests[0]
	if req.Method != http.MethodPost || req.URL.String() != "https://webservices5.autotask.net/ATServicesRest/V1.0/Tickets/query" {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL)
	}
	for header, want := range map[string]string{
		"UserName":           testCreds.Username,
		"Secret":             testCreds.Secret,
		"ApiIntegrationcode": testCreds.IntegrationCode,
		"Content-Type":       "application/json",
	} {
		if got := req.Header.Get(header); got != want {
			t.Fatalf("header %s = %q, want %q", header, got, want)
		}
	}
	if fake.bodies[0] != `{"filter":[{"op":"eq","field":"status","value":1}]}` {
		t.Fatalf("unexpected body %s", fake.bodies[0])
	}
}

func TestQueryWithoutFilterPostsEmptyObject(t *testing.T) {
	fake := &fakeAutotask{}
	client := newFakeClient(fake, nil)
	if _, err := client.Query(context.Background(), EntityCompanies, nil); err != nil {
		t.Fatalf("query: %v", err)
	}
	if fake.bodies[0] != `{}` {
		t.Fatalf("expected empty object body, got %s", fake.bodies[0])
	}
}

func TestZoneResolvedOnceAndMemoized(t *testing.T) {
	fake := &fakeAutotask{}
	client := newFakeClient(fake, nil)
	ctx := context.Background()

	for _, entity := range []string{EntityTickets, EntityContacts, EntityTasks} {
		if _, err := client.Query(ctx, entity, nil); err != nil {
			t.Fatalf("query %s: %v", entity, err)
		}
	}
	if _, err := client.GetByID(ctx, EntityCompanies, 7); err != nil {
		t.Fatalf("get: %v", err)
	}
	if fake.zoneCalls.Load() != 1 {
		t.Fatalf("expected a single zone lookup, got %d", fake.zoneCalls.Load())
	}
}

func TestZoneFailureIsNotMemoized(t *testing.T) {
	fake := &fakeAutotask{}
	fake.zoneStatus.Store(http.StatusServiceUnavailable)
	client := newFakeClient(fake, nil)
	ctx := context.Background()

	_, err := client.Query(ctx, EntityTickets, nil)
	if !utils.IsKind(err, utils.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if fake.apiCalls.Load() != 0 {
		t.Fatalf("no entity request should be sent without a zone")
	}

	fake.zoneStatus.Store(0)
	if _, err := client.Query(ctx, EntityTickets, nil); err != nil {
		t.Fatalf("retry after zone recovery: %v", err)
	}
	if fake.zoneCalls.Load() != 2 {
		t.Fatalf("expected zone lookup to be retried, got %d calls", fake.zoneCalls.Load())
	}
}

func TestMissingCredentialsFailBeforeIO(t *testing.T) {
	fake := &fakeAutotask{}
	client := newFakeClient(fake, nil, func(o *Options) { o.Credentials = Credentials{} })
	if client.Configured() {
		t.Fatalf("client without credentials must not report configured")
	}
	_, err := client.Query(context.Background(), EntityTickets, nil)
	if !utils.IsKind(err, utils.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if fake.zoneCalls.Load()+fake.apiCalls.Load() != 0 {
		t.Fatalf("no network calls expected")
	}
}

func TestCacheHitSkipsNetwork(t *testing.T) {
	fake := &fakeAutotask{respond: func(*http.Request) *http.Response {
		return jsonResponse(http.StatusOK, `{"items":[{"id":1}]}`)
	}}
	store := newStubCache()
	client := newFakeClient(fake, store)
	ctx := context.Background()
	filter := &Filter{Conditions: []Condition{{Field: "id", Op: OpGt, Value: 0}}}

	first, err := client.Query(ctx, EntityTickets, filter)
	if err != nil {
		t.Fatalf("first query: %v", err)
	}
	second, err := client.Query(ctx, EntityTickets, filter)
	if err != nil {
		t.Fatalf("second query: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("cached payload differs: %s vs %s", first, second)
	}
	if fake.apiCalls.Load() != 1 {
		t.Fatalf("expected cache to absorb second call, got %d api calls", fake.apiCalls.Load())
	}

	if err := client.ClearCache(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := client.Query(ctx, EntityTickets, filter); err != nil {
		t.Fatalf("query after clear: %v", err)
	}
	if fake.apiCalls.Load() != 2 {
		t.Fatalf("expected refetch after clear, got %d api calls", fake.apiCalls.Load())
	}
}

func TestGetByIDIsCached(t *testing.T) {
	fake := &fakeAutotask{respond: func(*http.Request) *http.Response {
		return jsonResponse(http.StatusOK, `{"item":{"id":42}}`)
	}}
	store := newStubCache()
	client := newFakeClient(fake, store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		data, err := client.GetByID(ctx, EntityTickets, 42)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !strings.Contains(string(data), `"id":42`) {
			t.Fatalf("unexpected payload %s", data)
		}
	}
	if fake.apiCalls.Load() != 1 || store.Len() != 1 {
		t.Fatalf("expected one call and one cache entry, got %d / %d", fake.apiCalls.Load(), store.Len())
	}
	req := fake.requests[0]
	if req.Method != http.MethodGet || !strings.HasSuffix(req.URL.Path, "/ATServicesRest/V1.0/Tickets/42") {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
	}
}

func TestProviderErrorCarriesStatusAndBody(t *testing.T) {
	fake := &fakeAutotask{respond: func(*http.Request) *http.Response {
		return jsonResponse(http.StatusBadRequest, `{"errors":["Unknown field: nope"]}`)
	}}
	store := newStubCache()
	client := newFakeClient(fake, store)

	_, err := client.Query(context.Background(), EntityTickets, &Filter{Conditions: []Condition{{Field: "nope", Op: OpEq, Value: 1}}})
	perr, ok := utils.AsProviderError(err)
	if !ok {
		t.Fatalf("expected provider error, got %v", err)
	}
	if perr.Status != http.StatusBadRequest || !strings.Contains(perr.Message, "Unknown field: nope") {
		t.Fatalf("unexpected provider error %+v", perr)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Fatalf("error text should include status: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("failed responses must not be cached")
	}
}

func TestInvalidInputsRejected(t *testing.T) {
	fake := &fakeAutotask{}
	client := newFakeClient(fake, nil)
	ctx := context.Background()

	if _, err := client.Query(ctx, "Invoices/../Secrets", nil); !utils.IsKind(err, utils.KindInvalidArgument) {
		t.Fatalf("expected invalid argument for unknown entity, got %v", err)
	}
	if _, err := client.Query(ctx, EntityTickets, &Filter{Conditions: []Condition{{Op: OpEq}}}); !utils.IsKind(err, utils.KindInvalidArgument) {
		t.Fatalf("expected invalid argument for field-less condition, got %v", err)
	}
	if _, err := client.GetByID(ctx, EntityTickets, 0); !utils.IsKind(err, utils.KindInvalidArgument) {
		t.Fatalf("expected invalid argument for zero id, got %v", err)
	}
	if fake.zoneCalls.Load()+fake.apiCalls.Load() != 0 {
		t.Fatalf("invalid input must not reach the network")
	}
}

func TestMalformedResponseIsRejected(t *testing.T) {
	fake := &fakeAutotask{respond: func(*http.Request) *http.Response {
		return jsonResponse(http.StatusOK, `<html>maintenance</html>`)
	}}
	client := newFakeClient(fake, nil)
	_, err := client.Query(context.Background(), EntityTickets, nil)
	if !utils.IsKind(err, utils.KindMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestDedupeReturnsSamePayload(t *testing.T) {
	fake := &fakeAutotask{respond: func(*http.Request) *http.Response {
		return jsonResponse(http.StatusOK, `{"items":[{"id":3}]}`)
	}}
	client := newFakeClient(fake, nil, func(o *Options) { o.Dedupe = true })

	var wg sync.WaitGroup
	results := make([]json.RawMessage, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := client.Query(context.Background(), EntityTickets, nil)
			if err != nil {
				t.Errorf("query: %v", err)
				return
			}
			results[i] = data
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if string(r) != `{"items":[{"id":3}]}` {
			t.Fatalf("result %d unexpected: %s", i, r)
		}
	}
	if calls := fake.apiCalls.Load(); calls < 1 || calls > 4 {
		t.Fatalf("unexpected api call count %d", calls)
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	fake := &fakeAutotask{}
	client := newFakeClient(fake, nil, func(o *Options) {
		o.RateLimit = 0.001
		o.RateBurst = 1
	})
	if _, err := client.Query(context.Background(), EntityTickets, nil); err != nil {
		t.Fatalf("first query should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Query(ctx, EntityContacts, nil)
	if !utils.IsKind(err, utils.KindNetwork) {
		t.Fatalf("expected rate limit wait to fail, got %v", err)
	}
	if fake.apiCalls.Load() != 1 {
		t.Fatalf("limited request must not reach the api, got %d calls", fake.apiCalls.Load())
	}
}

func TestTransportErrorIsNetworkError(t *testing.T) {
	client := NewClient(Options{
		Credentials: testCreds,
		HTTPClient: newTestClient(func(req *http.Request) (*http.Response, error) {
			if strings.HasSuffix(req.URL.Path, "/zoneInformation") {
				return jsonResponse(http.StatusOK, zoneBody), nil
			}
			return nil, errors.New("connection reset by peer")
		}),
	})
	_, err := client.Query(context.Background(), EntityTickets, nil)
	if !utils.IsKind(err, utils.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if _, ok := utils.AsProviderError(err); ok {
		t.Fatalf("transport failures are not provider errors")
	}
}

func TestDedupeSurvivesFirstCallerCancel(t *testing.T) {
	inflight := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fake := &fakeAutotask{respond: func(req *http.Request) *http.Response {
		once.Do(func() { close(inflight) })
		<-release
		if req.Context().Err() != nil {
			return jsonResponse(http.StatusServiceUnavailable, "request cancelled")
		}
		return jsonResponse(http.StatusOK, `{"items":[{"id":5}]}`)
	}}
	client := newFakeClient(fake, newStubCache(), func(o *Options) { o.Dedupe = true })

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Query(first, EntityTickets, nil)
		firstErr <- err
	}()
	<-inflight
	cancelFirst()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller should see its own cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelled caller did not return")
	}

	type result struct {
		data json.RawMessage
		err  error
	}
	second := make(chan result, 1)
	go func() {
		data, err := client.Query(context.Background(), EntityTickets, nil)
		second <- result{data, err}
	}()
	time.Sleep(100 * time.Millisecond)
	close(release)

	res := <-second
	if res.err != nil {
		t.Fatalf("waiting caller must not inherit the cancellation: %v", res.err)
	}
	if string(res.data) != `{"items":[{"id":5}]}` {
		t.Fatalf("unexpected payload %s", res.data)
	}
	if calls := fake.apiCalls.Load(); calls != 1 {
		t.Fatalf("expected the second caller to share the in-flight request, got %d calls", calls)
	}
}
