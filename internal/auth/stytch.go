package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/ticket-board/internal/config"
	apperrors "github.com/spec-kit/ticket-board/pkg/util"
)

// StytchClient verifies B2B sessions against the Stytch API. Construct one
// at process start and inject it wherever verification is needed; it is
// safe for concurrent use.
type StytchClient struct {
	projectID  string
	secret     string
	baseURL    string
	httpClient *http.Client
}

// NewStytchClient builds a client from config. A nil httpClient gets a
// sensible default timeout.
func NewStytchClient(cfg config.StytchConfig, httpClient *http.Client) (*StytchClient, error) {
	if cfg.ProjectID == "" || cfg.Secret == "" {
		return nil, errors.New("stytch project id and secret required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &StytchClient{
		projectID:  cfg.ProjectID,
		secret:     cfg.Secret,
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

type authenticateRequest struct {
	SessionJWT   string `json:"session_jwt,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
}

type authenticateResponse struct {
	MemberID       string `json:"member_id"`
	OrganizationID string `json:"organization_id"`
	SessionID      string `json:"session_id"`
	Member         struct {
		MemberID string `json:"member_id"`
	} `json:"member"`
	Organization struct {
		OrganizationID string `json:"organization_id"`
	} `json:"organization"`
	Session struct {
		ID string `json:"id"`
	} `json:"session"`
}

// Verify authenticates a session credential with one provider round trip.
// A credential with exactly two dot separators is treated as a session JWT,
// anything else as an opaque session token. Any provider error, non-200
// response, or undeterminable organization fails closed as unauthorized.
func (c *StytchClient) Verify(ctx context.Context, credential string) (*Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, apperrors.NewUnauthorized("missing credential")
	}

	payload := authenticateRequest{}
	if strings.Count(credential, ".") == 2 {
		payload.SessionJWT = credential
	} else {
		payload.SessionToken = credential
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid credential")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions/authenticate", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid credential")
	}
	req.SetBasicAuth(c.projectID, c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUnauthorized("session verification failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUnauthorized("invalid or expired session")
	}

	var parsed authenticateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewUnauthorized("session verification failed")
	}

	// Member, organization and session may arrive top-level or nested
	// depending on the endpoint version.
	identity := &Identity{
		MemberID:       firstNonEmpty(parsed.MemberID, parsed.Member.MemberID),
		OrganizationID: firstNonEmpty(parsed.OrganizationID, parsed.Organization.OrganizationID),
		SessionID:      firstNonEmpty(parsed.SessionID, parsed.Session.ID),
	}
	if identity.OrganizationID == "" {
		return nil, apperrors.NewUnauthorized("organization undeterminable")
	}
	return identity, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
