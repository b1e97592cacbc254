// Package backend is the HTTP client for the hosted verification backend.
//
// The backend owns the organization directory and the
// verify_message_signature procedure; this client only speaks its wire
// contract. When no backend is configured the rest of the system falls
// back to degraded local verification.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tusharbhayani/SigText/internal/model"
)

// VerifyRequest is sent to POST /v1/verify.
type VerifyRequest struct {
	Content   string `json:"content"`
	Signature string `json:"signature"`
	Sender    string `json:"sender"`
}

// VerifyResponse is the result of the hosted verify_message_signature
// procedure.
type VerifyResponse struct {
	IsValid          bool              `json:"is_valid"`
	OrganizationID   string            `json:"organization_id,omitempty"`
	OrganizationName string            `json:"organization_name,omitempty"`
	Details          map[string]string `json:"verification_details,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// PermissionError is an access-control rejection from the backend. The
// verifier rewrites it into a user-readable failure message.
type PermissionError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("backend denied access (HTTP %d, code=%s): %s", e.StatusCode, e.Code, e.Message)
}

// NotFoundError reports a lookup miss, as distinct from a transport error.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " not found"
}

// Client talks to the hosted backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a backend client. apiKey may be empty for anonymous
// read access.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Verify invokes the hosted verify_message_signature procedure.
func (c *Client) Verify(ctx context.Context, content, signature, sender string) (*VerifyResponse, error) {
	var resp VerifyResponse
	err := c.post(ctx, "/v1/verify", VerifyRequest{
		Content:   content,
		Signature: signature,
		Sender:    sender,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// OrganizationByWallet looks up the organization owning a wallet address
// (primary or any registered secondary wallet).
func (c *Client) OrganizationByWallet(ctx context.Context, wallet string) (*model.Organization, error) {
	var org model.Organization
	if err := c.get(ctx, "/v1/organizations/by-wallet/"+url.PathEscape(wallet), &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// OrganizationByPhone finds a verified organization whose metadata
// contains the given phone number.
func (c *Client) OrganizationByPhone(ctx context.Context, phone string) (*model.Organization, error) {
	var org model.Organization
	path := "/v1/organizations/by-phone?phone=" + url.QueryEscape(phone)
	if err := c.get(ctx, path, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// VerifiedOrganizations returns the full current verified-organizations
// set, for the offline mirror.
func (c *Client) VerifiedOrganizations(ctx context.Context) ([]model.Organization, error) {
	var orgs []model.Organization
	if err := c.get(ctx, "/v1/organizations?status=verified", &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// RecentMessages returns the most recent verified messages.
func (c *Client) RecentMessages(ctx context.Context, limit int) ([]model.VerifiedMessage, error) {
	var msgs []model.VerifiedMessage
	if err := c.get(ctx, fmt.Sprintf("/v1/messages?limit=%d", limit), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// RegisterOrganization submits a new organization for review. The row is
// created with status pending; promotion to verified happens out of band.
func (c *Client) RegisterOrganization(ctx context.Context, org model.Organization) (*model.Organization, error) {
	var created model.Organization
	if err := c.post(ctx, "/v1/organizations", org, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil

	case http.StatusNotFound:
		return &NotFoundError{What: req.URL.Path}

	case http.StatusUnauthorized, http.StatusForbidden:
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &PermissionError{StatusCode: resp.StatusCode, Code: e.Code, Message: e.Message}

	default:
		return fmt.Errorf("backend returned HTTP %d", resp.StatusCode)
	}
}
