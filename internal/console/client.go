package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsonpatch "gomodules.xyz/jsonpatch/v2"

	"github.com/arklim/catalog-access/internal/core/domain"
)

// CodeEntityNotFound is the server error code that marks a missing entity.
// The page treats it as fatal; every other failure is a transient toast.
const CodeEntityNotFound = "ENTITY_NOT_FOUND"

// APIError is a decoded error payload from the catalog API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}

// IsEntityNotFound reports whether err is an APIError carrying the
// entity-not-found code.
func IsEntityNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == CodeEntityNotFound
}

// RoleCreate is the payload for the create-role endpoint.
type RoleCreate struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
}

type roleListEnvelope struct {
	Data []domain.Role `json:"data"`
}

// Client is a typed HTTP client for the catalog access API.
type Client struct {
	server string
	http   *http.Client
}

// NewClient builds a client against the given server base URL.
func NewClient(server string, timeout time.Duration) *Client {
	server = strings.TrimRight(server, "/")
	if server == "" {
		server = "http://localhost:8585"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		server: server,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetRoles lists all roles, embedding the requested reference fields.
func (c *Client) GetRoles(ctx context.Context, fields []string) ([]domain.Role, error) {
	var out roleListEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/roles"+fieldsQuery(fields), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetRoleByName fetches a single role by its unique name.
func (c *Client) GetRoleByName(ctx context.Context, name string, fields []string) (*domain.Role, error) {
	var out domain.Role
	path := "/api/v1/roles/name/" + url.PathEscape(name) + fieldsQuery(fields)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRole provisions a new role with its default policy.
func (c *Client) CreateRole(ctx context.Context, req RoleCreate) (*domain.Role, error) {
	var out domain.Role
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/roles", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchRole submits an RFC 6902 patch document against the role.
func (c *Client) PatchRole(ctx context.Context, id string, ops []jsonpatch.Operation) (*domain.Role, error) {
	var out domain.Role
	path := "/api/v1/roles/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodPatch, path, ops, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPolicy fetches a policy by id.
func (c *Client) GetPolicy(ctx context.Context, id string, fields []string) (*domain.Policy, error) {
	var out domain.Policy
	path := "/api/v1/policies/" + url.PathEscape(id) + fieldsQuery(fields)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePolicy replaces the policy state wholesale.
func (c *Client) UpdatePolicy(ctx context.Context, policy domain.Policy) (*domain.Policy, error) {
	var out domain.Policy
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/policies", policy, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	resBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(resBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(resBody))
		}
		return apiErr
	}

	if out == nil || len(resBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(resBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func fieldsQuery(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return "?fields=" + url.QueryEscape(strings.Join(fields, ","))
}
