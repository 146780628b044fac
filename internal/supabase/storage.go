package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// UploadObject uploads an object to a storage bucket. Existing objects at the
// same path are overwritten.
func (c *Client) UploadObject(ctx context.Context, accessToken, bucket, path, contentType string, data []byte) error {
	url := fmt.Sprintf("%s/object/%s/%s", c.storageURL, bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return parseError(body, resp.StatusCode)
	}
	return nil
}

// PublicURL returns the public URL of an object in a public bucket.
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.storageURL, bucket, path)
}

// InvokeFunction calls an edge function by name. dest may be nil when the
// response body is not needed.
func (c *Client) InvokeFunction(ctx context.Context, name string, payload any, dest any) error {
	url := fmt.Sprintf("%s/%s", c.funcURL, name)

	body, status, err := c.request(ctx, http.MethodPost, url, payload, c.serviceKey, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return parseError(body, status)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode function %s response: %w", name, err)
	}
	return nil
}
