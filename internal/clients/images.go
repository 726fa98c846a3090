package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ImageClient calls the external thumbnail generation service.
type ImageClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewImageClient(baseURL, apiKey string) *ImageClient {
	return &ImageClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// ValidateReferenceURL rejects reference images that would make the image
// service fetch private or loopback hosts on our behalf.
func ValidateReferenceURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid reference URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("reference URL must be http or https, got %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("reference URL has no host")
	}
	if host == "localhost" {
		return fmt.Errorf("reference URL host %q is not allowed", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("reference URL host %q is not allowed", host)
		}
	}

	return nil
}

// Generate produces one PNG image from a reference image and a prompt.
func (c *ImageClient) Generate(ctx context.Context, referenceURL, prompt string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{
		"reference_url": referenceURL,
		"prompt":        prompt,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("image service returned %d: %s", resp.StatusCode, payload)
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read generated image: %w", err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("image service returned an empty body")
	}

	return image, nil
}
