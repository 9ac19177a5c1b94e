package mock

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/jdziat/compliscan/pkg/core"
)

// MaxUploadBytes bounds a single mock upload.
const MaxUploadBytes = 10 << 20

// Presign reserves an object key and returns where to PUT the file.
func (s *Store) Presign(filename, baseURL string) (*core.PresignedUpload, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, &core.HTTPError{Status: http.StatusBadRequest, Message: "filename is required"}
	}
	key := "uploads/" + uuid.NewString() + "/" + name
	return &core.PresignedUpload{
		URL:     strings.TrimRight(baseURL, "/") + "/mock-bucket/" + key,
		Key:     key,
		Headers: map[string]string{"Content-Type": "text/csv"},
	}, nil
}

// PutObject stores an uploaded file under key.
func (s *Store) PutObject(key string, data []byte) error {
	if !strings.HasPrefix(key, "uploads/") {
		return &core.HTTPError{Status: http.StatusForbidden, Message: "SignatureDoesNotMatch"}
	}
	s.mu.Lock()
	s.objects[key] = bytes.Clone(data)
	s.mu.Unlock()
	return nil
}

// Confirm turns an uploaded CSV into a screening job. A file without a name
// column still creates a job, which then fails.
func (s *Store) Confirm(ctx context.Context, key, country string) (*core.UploadReceipt, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, &core.HTTPError{Status: http.StatusNotFound, Message: "Upload not found"}
	}

	records, err := parseRecords(bytes.NewReader(data), country)
	if err != nil {
		id := s.SubmitFailing(err.Error())
		s.logger.Warn("mock upload rejected", "job_id", id, "key", key, "error", err)
		return &core.UploadReceipt{JobID: id}, nil
	}
	return &core.UploadReceipt{JobID: s.Submit(records)}, nil
}

// Upload runs presign, put and confirm in-process and returns the new job id.
// It matches client.Client.Upload so either can sit behind the same interface.
func (s *Store) Upload(ctx context.Context, filename string, r io.Reader, _ int64, country string) (string, error) {
	p, err := s.Presign(filename, "mock://local")
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("compliscan: read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return "", &core.HTTPError{Status: http.StatusRequestEntityTooLarge, Message: "File too large"}
	}
	if err := s.PutObject(p.Key, data); err != nil {
		return "", err
	}
	receipt, err := s.Confirm(ctx, p.Key, country)
	if err != nil {
		return "", err
	}
	s.logger.Info("upload confirmed", "job_id", receipt.JobID, "key", p.Key)
	return receipt.JobID, nil
}

func parseRecords(r io.Reader, defaultCountry string) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("File is empty")
		}
		return nil, errors.New("Invalid CSV: " + err.Error())
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	nameCol, ok := cols["name"]
	if !ok {
		return nil, errors.New("Missing required column: name")
	}
	idCol, hasID := cols["recordid"]
	if !hasID {
		idCol, hasID = cols["id"]
	}
	countryCol, hasCountry := cols["country"]

	var out []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.New("Invalid CSV: " + err.Error())
		}
		rec := Record{Country: defaultCountry}
		if nameCol < len(row) {
			rec.Name = strings.TrimSpace(row[nameCol])
		}
		if rec.Name == "" {
			continue
		}
		if hasID && idCol < len(row) {
			rec.RecordID = strings.TrimSpace(row[idCol])
		}
		if hasCountry && countryCol < len(row) && strings.TrimSpace(row[countryCol]) != "" {
			rec.Country = strings.TrimSpace(row[countryCol])
		}
		out = append(out, rec)
	}
	return out, nil
}
