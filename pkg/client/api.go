package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/security"
)

var (
	_ core.Backend          = (*Client)(nil)
	_ core.RecentJobsLister = (*Client)(nil)
)

// GetJob fetches the current snapshot of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*core.Job, error) {
	if err := security.ValidateJobID(jobID); err != nil {
		return nil, err
	}
	resp, err := c.Request(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}
	job, err := decode[core.Job](resp, "job")
	if err != nil {
		return nil, err
	}
	if job.JobID == "" {
		job.JobID = jobID
	}
	return job, nil
}

// GetResults fetches one page of results. An empty lastKey requests the first page.
func (c *Client) GetResults(ctx context.Context, jobID string, limit int, lastKey string) (*core.ResultPage, error) {
	if err := security.ValidateJobID(jobID); err != nil {
		return nil, err
	}
	path := "/results/" + url.PathEscape(jobID) + pageQuery(limit, lastKey)
	resp, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decode[core.ResultPage](resp, "result page")
}

// GetRecentJobs lists recently submitted jobs, newest first.
func (c *Client) GetRecentJobs(ctx context.Context, limit int, lastKey string) (*core.JobPage, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/jobs/recent"+pageQuery(limit, lastKey), nil)
	if err != nil {
		return nil, err
	}
	return decode[core.JobPage](resp, "job page")
}

// Health returns the backend's reported status.
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return "", err
	}
	if resp.Data == nil {
		return strings.TrimSpace(resp.Text), nil
	}
	out, err := decode[struct {
		Status string `json:"status"`
	}](resp, "health")
	if err != nil {
		return "", err
	}
	return out.Status, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*core.LoginResponse, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", core.ErrInvalidArgument)
	}
	body := map[string]string{"username": username, "password": password}
	resp, err := c.Request(ctx, http.MethodPost, "/auth/login", body)
	if err != nil {
		return nil, err
	}
	out, err := decode[core.LoginResponse](resp, "login")
	if err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &core.DecodeError{What: "login"}
	}
	return out, nil
}

// Search screens a single entity name.
func (c *Client) Search(ctx context.Context, q core.SearchQuery) (*core.SearchResponse, error) {
	if strings.TrimSpace(q.Name) == "" {
		return nil, fmt.Errorf("%w: search name is required", core.ErrInvalidArgument)
	}
	resp, err := c.Request(ctx, http.MethodPost, "/search", q)
	if err != nil {
		return nil, err
	}
	return decode[core.SearchResponse](resp, "search response")
}

// PresignUpload requests a presigned URL for a CSV upload.
func (c *Client) PresignUpload(ctx context.Context, filename string) (*core.PresignedUpload, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", core.ErrInvalidArgument)
	}
	q := url.Values{}
	q.Set("filename", filename)
	resp, err := c.Request(ctx, http.MethodGet, "/uploads/presign?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	out, err := decode[core.PresignedUpload](resp, "presigned upload")
	if err != nil {
		return nil, err
	}
	if out.URL == "" || out.Key == "" {
		return nil, &core.DecodeError{What: "presigned upload"}
	}
	return out, nil
}

// PutUpload sends the file body to a presigned URL.
// The presigned URL carries its own authorization, so no credential is attached.
func (c *Client) PutUpload(ctx context.Context, p *core.PresignedUpload, r io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.URL, r)
	if err != nil {
		return fmt.Errorf("compliscan: build upload request: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	req.Header.Set("Content-Type", "text/csv")
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &core.TransportError{Method: http.MethodPut, URL: p.URL, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		raw, _ := io.ReadAll(res.Body)
		return &core.HTTPError{
			Status:  res.StatusCode,
			Message: errorMessage(res.StatusCode, parseJSON(raw), string(raw)),
		}
	}
	return nil
}

// ConfirmUpload registers an uploaded object and creates the screening job.
func (c *Client) ConfirmUpload(ctx context.Context, key, country string) (*core.UploadReceipt, error) {
	body := map[string]string{"key": key}
	if country != "" {
		body["country"] = country
	}
	resp, err := c.Request(ctx, http.MethodPost, "/uploads/confirm", body)
	if err != nil {
		return nil, err
	}
	out, err := decode[core.UploadReceipt](resp, "upload receipt")
	if err != nil {
		return nil, err
	}
	if out.JobID == "" {
		return nil, &core.DecodeError{What: "upload receipt"}
	}
	return out, nil
}

// Upload runs the presign, PUT and confirm sequence and returns the new job id.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader, size int64, country string) (string, error) {
	presigned, err := c.PresignUpload(ctx, filename)
	if err != nil {
		return "", err
	}
	if err := c.PutUpload(ctx, presigned, r, size); err != nil {
		return "", err
	}
	receipt, err := c.ConfirmUpload(ctx, presigned.Key, country)
	if err != nil {
		return "", err
	}
	c.logger.Info("upload confirmed", "job_id", receipt.JobID, "key", presigned.Key)
	return receipt.JobID, nil
}

func pageQuery(limit int, lastKey string) string {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if lastKey != "" {
		q.Set("lastKey", lastKey)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
