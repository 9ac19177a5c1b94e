package mock

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/jdziat/compliscan/pkg/core"
)

// pageKey is the position after which the next page starts.
// It is sent to clients as base64url JSON and never interpreted by them.
type pageKey struct {
	JobID    string `json:"jobId"`
	RecordID string `json:"recordId,omitempty"`
}

func encodeKey(k pageKey) string {
	b, _ := json.Marshal(k)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeKey(s string) (pageKey, error) {
	var k pageKey
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return k, invalidKey(err)
	}
	if err := json.Unmarshal(b, &k); err != nil {
		return k, invalidKey(err)
	}
	if k.JobID == "" {
		return k, invalidKey(fmt.Errorf("missing job id"))
	}
	return k, nil
}

func invalidKey(err error) error {
	return &core.HTTPError{Status: 400, Message: "Invalid lastKey: " + err.Error()}
}
