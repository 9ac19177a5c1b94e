package mock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/compliscan/pkg/client"
	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/poller"
	"github.com/jdziat/compliscan/pkg/results"
)

func newServer(t *testing.T, store *Store) *httptest.Server {
	t.Helper()
	auth, err := NewDefaultAuth("test-secret")
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(store, auth, WithAllowedOrigins("http://localhost:5173")))
	t.Cleanup(srv.Close)
	return srv
}

func loggedInClient(t *testing.T, srv *httptest.Server) *client.Client {
	t.Helper()
	anon := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	resp, err := anon.Login(context.Background(), DefaultUsername, DefaultPassword)
	require.NoError(t, err)
	return client.New(srv.URL, client.WithHTTPClient(srv.Client()), client.WithCredentials(client.StaticToken(resp.Token)))
}

func TestServer_Health(t *testing.T) {
	srv := newServer(t, NewStore())
	c := client.New(srv.URL, client.WithHTTPClient(srv.Client()))

	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status)
}

func TestServer_RequiresAuth(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Seed())
	srv := newServer(t, store)

	anon := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	_, err := anon.GetJob(context.Background(), DemoJobID)

	var httpErr *core.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.True(t, httpErr.Unauthorized())
	assert.Equal(t, "Unauthorized", httpErr.Message)

	bad := client.New(srv.URL, client.WithHTTPClient(srv.Client()), client.WithCredentials(client.StaticToken("forged.token.value")))
	_, err = bad.GetJob(context.Background(), DemoJobID)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
}

func TestServer_LoginRejectsBadPassword(t *testing.T) {
	srv := newServer(t, NewStore())
	c := client.New(srv.URL, client.WithHTTPClient(srv.Client()))

	_, err := c.Login(context.Background(), DefaultUsername, "wrong")
	assert.Equal(t, "Invalid credentials", core.Message(err))
}

func TestServer_TokenClaims(t *testing.T) {
	srv := newServer(t, NewStore())
	c := client.New(srv.URL, client.WithHTTPClient(srv.Client()))

	resp, err := c.Login(context.Background(), "ADMIN", DefaultPassword)
	require.NoError(t, err)

	info, err := client.ParseTokenInfo(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, DefaultUsername, info.Subject)
	assert.Equal(t, []string{"admin"}, info.Roles)
	assert.False(t, info.Expired(time.Now()))
}

func TestServer_ResultsPagingOverHTTP(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Seed())
	c := loggedInClient(t, newServer(t, store))

	acc := results.NewAccumulator(c)
	require.NoError(t, acc.LoadFirstPage(context.Background(), LargeJobID, 100))
	require.NoError(t, acc.LoadAll(context.Background(), LargeJobID, 100))

	assert.Equal(t, 250, acc.Len())
	assert.False(t, acc.HasMore())
}

func TestServer_BadLimit(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Seed())
	c := loggedInClient(t, newServer(t, store))

	_, err := c.Request(context.Background(), http.MethodGet, "/results/job-1?limit=abc", nil)
	assert.Equal(t, "limit must be a non-negative integer", core.Message(err))
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newServer(t, NewStore())

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/jobs/job-1", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, "http://localhost:5173", res.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_EndToEndDemoJob(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Seed())
	c := loggedInClient(t, newServer(t, store))

	p, err := poller.New(c, DemoJobID, poller.WithInterval(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))

	snap := p.Snapshot()
	require.NotNil(t, snap.Summary)
	counts := results.CountBands(p.Results().Items())
	assert.Equal(t, results.BandCounts{High: 1, Medium: 1, Low: 1}, counts)
	assert.Equal(t, snap.Summary.Total, counts.Total())
}

func TestServer_UploadThenPoll(t *testing.T) {
	store := NewStore(WithPhase(20 * time.Millisecond))
	c := loggedInClient(t, newServer(t, store))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body := "name,country\nIvan Petrov,RU\nJane Smith,US\n"
	jobID, err := c.Upload(ctx, "batch.csv", strings.NewReader(body), int64(len(body)), "")
	require.NoError(t, err)

	events := make([]core.JobStatus, 0)
	p, err := poller.New(c, jobID, poller.WithInterval(5*time.Millisecond))
	require.NoError(t, err)
	ch := p.Events()
	defer p.Unsubscribe(ch)
	require.NoError(t, p.Start(ctx))
	defer p.Stop()
	require.NoError(t, p.Wait(ctx))

	for len(ch) > 0 {
		if u, ok := (<-ch).(*core.JobUpdated); ok {
			events = append(events, u.Job.Status)
		}
	}

	require.NotEmpty(t, events)
	assert.Equal(t, core.StatusDone, events[len(events)-1])
	assert.Equal(t, poller.StateSettledDone, p.State())

	view := results.DefaultView().Apply(p.Results().Items())
	require.Len(t, view, 2)
	assert.Equal(t, "Ivan Petrov", view[0].Name)

	recent, err := c.GetRecentJobs(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, recent.Items, 1)
	assert.Equal(t, jobID, recent.Items[0].JobID)
}
