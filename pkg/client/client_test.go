package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/jobctx"
)

func newTestServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, New(srv.URL + "/", WithHTTPClient(srv.Client()))
}

func TestRequest_NoContent(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := c.Request(context.Background(), http.MethodDelete, "/jobs/x", nil)
	require.NoError(t, err)
	assert.True(t, resp.NoContent)
	assert.Nil(t, resp.Data)
}

func TestRequest_JSONAndTextBodies(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/text" {
			_, _ = w.Write([]byte("ok"))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	resp, err := c.Request(context.Background(), http.MethodGet, "/json", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Data))

	resp, err = c.Request(context.Background(), http.MethodGet, "/text", nil)
	require.NoError(t, err)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "ok", resp.Text)
}

func TestRequest_Headers(t *testing.T) {
	var got http.Header
	var body map[string]string
	_, srvClient := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{}`))
	})
	c := New(srvClient.BaseURL(),
		WithHTTPClient(srvClient.httpClient),
		WithCredentials(StaticToken("tok-123")),
		WithAPIKey("legacy-key"),
		WithUserAgent("test-agent"),
	)

	_, err := c.Request(context.Background(), http.MethodPost, "/search", map[string]string{"name": "Acme"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", got.Get("Authorization"))
	assert.Equal(t, "legacy-key", got.Get("x-api-key"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "test-agent", got.Get("User-Agent"))
	assert.NotEmpty(t, got.Get("X-Request-Id"))
	assert.Equal(t, "Acme", body["name"])
}

func TestRequest_RequestIDFromContext(t *testing.T) {
	var ids []string
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get("X-Request-Id"))
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := jobctx.WithRequestID(context.Background(), "trace-42")
	_, err := c.Request(ctx, http.MethodGet, "/a", nil)
	require.NoError(t, err)
	_, err = c.Request(context.Background(), http.MethodGet, "/b", nil)
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.Equal(t, "trace-42", ids[0])
	assert.NotEqual(t, "trace-42", ids[1])
	assert.NotEmpty(t, ids[1])
}

func TestRequest_EmptyTokenOmitsAuthorization(t *testing.T) {
	var got http.Header
	_, base := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	})
	c := New(base.BaseURL(), WithHTTPClient(base.httpClient), WithCredentials(StaticToken("  ")))

	_, err := c.Request(context.Background(), http.MethodGet, "/health", nil)
	require.NoError(t, err)
	assert.Empty(t, got.Get("Authorization"))
	assert.Empty(t, got.Get("Content-Type"))
}

func TestRequest_CredentialError(t *testing.T) {
	calls := 0
	_, base := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})
	boom := errors.New("keychain locked")
	c := New(base.BaseURL(), WithHTTPClient(base.httpClient), WithCredentials(CredentialFunc(func(context.Context) (string, error) {
		return "", boom
	})))

	_, err := c.Request(context.Background(), http.MethodGet, "/health", nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, calls)
}

func TestRequest_ErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", 404, `{"message":"Job not found","error":"ignored"}`, "Job not found"},
		{"error field", 400, `{"error":"bad limit"}`, "bad limit"},
		{"raw text", 502, "upstream unavailable", "upstream unavailable"},
		{"json without fields", 500, `{"code":42}`, `{"code":42}`},
		{"empty body", 503, "", "HTTP 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Request(context.Background(), http.MethodGet, "/jobs/x", nil)

			var httpErr *core.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.Status)
			assert.Equal(t, tt.want, httpErr.Message)
		})
	}
}

func TestRequest_UnauthorizedIsSurfaced(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
	})

	_, err := c.GetJob(context.Background(), "job-1")

	var httpErr *core.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.True(t, httpErr.Unauthorized())
	assert.Equal(t, "Unauthorized", core.Message(err))
}

func TestRequest_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url)
	_, err := c.Request(context.Background(), http.MethodGet, "/health", nil)

	var transport *core.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, http.MethodGet, transport.Method)
	assert.Equal(t, url+"/health", transport.URL)
}

func TestGetJob(t *testing.T) {
	var path string
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"jobId":"job 1","status":"DONE","summary":{"total":3,"high":1,"medium":1,"low":1}}`))
	})

	job, err := c.GetJob(context.Background(), "job 1")
	require.NoError(t, err)

	assert.Equal(t, "/jobs/job%201", path)
	assert.Equal(t, core.StatusDone, job.Status)
	require.NotNil(t, job.Summary)
	assert.Equal(t, 3, job.Summary.Total)
}

func TestGetJob_InvalidIDSkipsNetwork(t *testing.T) {
	calls := 0
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	_, err := c.GetJob(context.Background(), "   ")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Equal(t, 0, calls)
}

func TestGetJob_NoStructuredBody(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := c.GetJob(context.Background(), "job-1")

	var decodeErr *core.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "job", decodeErr.What)
}

func TestGetResults_QueryAndCursor(t *testing.T) {
	var query map[string][]string
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`{"items":[{"jobId":"job-1","recordId":"r1","name":"A","riskScore":91}],"lastKey":"c1"}`))
	})

	page, err := c.GetResults(context.Background(), "job-1", 100, "c0")
	require.NoError(t, err)

	assert.Equal(t, []string{"100"}, query["limit"])
	assert.Equal(t, []string{"c0"}, query["lastKey"])
	require.Len(t, page.Items, 1)
	assert.Equal(t, "r1", page.Items[0].RecordID)
	assert.Equal(t, 91.0, page.Items[0].Score())
	assert.Equal(t, "c1", page.Cursor())
}

func TestGetResults_NullCursor(t *testing.T) {
	var rawQuery string
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"items":[],"lastKey":null}`))
	})

	page, err := c.GetResults(context.Background(), "job-1", 0, "")
	require.NoError(t, err)
	assert.Empty(t, rawQuery)
	assert.Equal(t, "", page.Cursor())
}

func TestGetRecentJobs(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/recent", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"items":[{"jobId":"a","status":"QUEUED"},{"jobId":"b","status":"DONE"}]}`))
	})

	page, err := c.GetRecentJobs(context.Background(), 20, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a", page.Items[0].JobID)
	assert.Empty(t, page.Cursor())
}

func TestHealth(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status)

	_, plain := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	status, err = plain.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status)
}

func TestLogin(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "password" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"t","user":{"username":"admin"}}`))
	})

	resp, err := c.Login(context.Background(), "admin", "password")
	require.NoError(t, err)
	assert.Equal(t, "t", resp.Token)
	assert.Equal(t, "admin", resp.User.Username)

	_, err = c.Login(context.Background(), "admin", "nope")
	assert.Equal(t, "Invalid credentials", core.Message(err))

	_, err = c.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestSearch(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"matches":[{"id":"1","name":"Ivan Petrov","list":"OFAC","riskScore":92}]}`))
	})

	resp, err := c.Search(context.Background(), core.SearchQuery{Name: "Ivan"})
	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, core.ListOFAC, resp.Matches[0].List)
}

func TestUpload(t *testing.T) {
	var uploaded string
	var confirmed map[string]string
	var putAuth string

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/uploads/presign", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "people.csv", r.URL.Query().Get("filename"))
		_ = json.NewEncoder(w).Encode(core.PresignedUpload{URL: srv.URL + "/bucket/k1", Key: "k1"})
	})
	mux.HandleFunc("/bucket/k1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		putAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		uploaded = string(b)
	})
	mux.HandleFunc("/uploads/confirm", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&confirmed)
		_, _ = w.Write([]byte(`{"jobId":"job-9"}`))
	})

	c := New(srv.URL, WithHTTPClient(srv.Client()), WithCredentials(StaticToken("secret")))
	body := "name,country\nAcme,US\n"

	jobID, err := c.Upload(context.Background(), "people.csv", strings.NewReader(body), int64(len(body)), "US")
	require.NoError(t, err)

	assert.Equal(t, "job-9", jobID)
	assert.Equal(t, body, uploaded)
	assert.Empty(t, putAuth)
	assert.Equal(t, "k1", confirmed["key"])
	assert.Equal(t, "US", confirmed["country"])
}

func TestPutUpload_Rejected(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("SignatureDoesNotMatch"))
	})

	err := c.PutUpload(context.Background(), &core.PresignedUpload{URL: c.BaseURL() + "/b", Key: "k"}, strings.NewReader("x"), 1)

	var httpErr *core.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "SignatureDoesNotMatch", httpErr.Message)
}

func TestParseTokenInfo(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "u-1",
		"username": "admin",
		"email":    "admin@example.com",
		"roles":    []string{"analyst"},
		"exp":      exp.Unix(),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)

	info, err := ParseTokenInfo(token)
	require.NoError(t, err)

	assert.Equal(t, "u-1", info.Subject)
	assert.Equal(t, "admin", info.Username)
	assert.Equal(t, "admin@example.com", info.Email)
	assert.Equal(t, []string{"analyst"}, info.Roles)
	assert.True(t, info.ExpiresAt.Equal(exp))
	assert.False(t, info.Expired(time.Now()))
	assert.True(t, info.Expired(exp.Add(time.Minute)))
}

func TestParseTokenInfo_Malformed(t *testing.T) {
	_, err := ParseTokenInfo("not-a-jwt")
	assert.Error(t, err)
}
