package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Store issues signed upload URLs for private buckets and answers whether
// an object has been uploaded.
type Store interface {
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error)
	Exists(ctx context.Context, bucket, path string) (bool, error)
}

var ErrStoreNotConfigured = errors.New("documents: storage is not configured")

const defaultSignedURLTTL = time.Hour

// SupabaseStore talks to Supabase Storage with the service_role key.
type SupabaseStore struct {
	BaseURL      string
	SecretKey    string
	SignedURLTTL time.Duration
	Client       *http.Client
}

// StorageError is a non 2xx answer from the storage API.
type StorageError struct {
	Status  int
	Message string
}

func (e *StorageError) Error() string {
	if e.Status == http.StatusForbidden || strings.Contains(e.Message, "Invalid Compact JWS") {
		return fmt.Sprintf("supabase storage: status %d: %s (the service_role key is required, the anon key is rejected)", e.Status, e.Message)
	}
	return fmt.Sprintf("supabase storage: status %d: %s", e.Status, e.Message)
}

func (c *SupabaseStore) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	if c.BaseURL == "" || c.SecretKey == "" {
		return "", ErrStoreNotConfigured
	}
	base := strings.TrimRight(c.BaseURL, "/")
	ttl := c.SignedURLTTL
	if ttl <= 0 {
		ttl = defaultSignedURLTTL
	}

	payload, err := json.Marshal(struct {
		ExpiresIn int  `json:"expiresIn"`
		Upsert    bool `json:"upsert"`
	}{ExpiresIn: int(ttl.Seconds())})
	if err != nil {
		return "", err
	}
	endpoint := base + "/storage/v1/object/upload/sign/" + url.PathEscape(bucket) + "/" + escapeObjectPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	hc := c.Client
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase storage: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}

	var out struct {
		SignedURL string `json:"signedUrl"`
		URL       string `json:"url"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode/100 != 2 {
		msg := out.Message
		if msg == "" {
			msg = out.Error
		}
		if msg == "" {
			msg = string(raw)
		}
		return "", &StorageError{Status: resp.StatusCode, Message: msg}
	}

	switch {
	case out.SignedURL != "":
		return out.SignedURL, nil
	case strings.HasPrefix(out.URL, "http"):
		return out.URL, nil
	case out.URL != "":
		// Older storage versions answer with a path relative to the project.
		return base + "/" + strings.TrimLeft(out.URL, "/"), nil
	}
	return "", fmt.Errorf("supabase storage: no signed url in %q", raw)
}

// Exists asks storage for the object's metadata. Supabase answers a missing
// object with 404, or 400 "Object not found" on older versions.
func (c *SupabaseStore) Exists(ctx context.Context, bucket, path string) (bool, error) {
	if c.BaseURL == "" || c.SecretKey == "" {
		return false, ErrStoreNotConfigured
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/storage/v1/object/info/authenticated/" +
		url.PathEscape(bucket) + "/" + escapeObjectPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	hc := c.Client
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return false, fmt.Errorf("supabase storage: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode/100 == 2:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(string(raw)), "not found"):
		return false, nil
	}
	var out struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &out)
	if out.Message == "" {
		out.Message = string(raw)
	}
	return false, &StorageError{Status: resp.StatusCode, Message: out.Message}
}

func escapeObjectPath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
