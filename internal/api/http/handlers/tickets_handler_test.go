package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-board/internal/api/http"
	"github.com/spec-kit/ticket-board/internal/api/http/handlers"
	"github.com/spec-kit/ticket-board/internal/auth"
	"github.com/spec-kit/ticket-board/internal/observability"
	"github.com/spec-kit/ticket-board/internal/repository/repositorytest"
	"github.com/spec-kit/ticket-board/internal/service"
	apperrors "github.com/spec-kit/ticket-board/pkg/util"
)

// stubVerifier resolves a fixed token to a fixed organization, rejecting
// everything else.
type stubVerifier struct {
	token    string
	identity auth.Identity
}

func (v *stubVerifier) Verify(ctx context.Context, credential string) (*auth.Identity, error) {
	if credential != v.token {
		return nil, apperrors.NewUnauthorized("invalid or expired session")
	}
	identity := v.identity
	return &identity, nil
}

func newTestApp(t *testing.T) (*fiber.App, *observability.Metrics) {
	t.Helper()

	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:       repositorytest.NewTicketRepository(),
		OrganizationRepo: repositorytest.NewOrganizationRepository(),
	})

	verifier := &stubVerifier{
		token:    "valid-token",
		identity: auth.Identity{MemberID: "member-1", OrganizationID: "org-1", SessionID: "session-1"},
	}

	app := fiber.New()
	metrics := observability.NewMetrics()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-board", "test", nil, nil),
		Tickets:        handlers.NewTicketsHandler(svc),
		Discovery:      handlers.NewDiscoveryHandler("http://localhost:8080", "https://test.stytch.com"),
		AuthMiddleware: auth.NewAuthMiddleware(verifier),
	})
	return app, metrics
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any, authenticated bool) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer valid-token")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeTickets(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	var parsed struct {
		Tickets []map[string]any `json:"tickets"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.NotNil(t, parsed.Tickets)
	return parsed.Tickets
}

func TestTicketsRequireAuthentication(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/tickets", nil, false)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTicketLifecycle(t *testing.T) {
	app, _ := newTestApp(t)

	// Empty board for a fresh tenant.
	resp := doRequest(t, app, http.MethodGet, "/api/tickets", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decodeTickets(t, resp))

	// Create returns the refreshed list with the new ticket in backlog.
	resp = doRequest(t, app, http.MethodPost, "/api/tickets", map[string]string{
		"title":       "Set up dev env",
		"assignee":    "Dev",
		"description": "Install all required tools",
	}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tickets := decodeTickets(t, resp)
	require.Len(t, tickets, 1)
	require.Equal(t, "backlog", tickets[0]["status"])
	ticketID := tickets[0]["id"].(string)

	// Move it to done.
	resp = doRequest(t, app, http.MethodPost, "/api/tickets/"+ticketID+"/status",
		map[string]string{"status": "done"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tickets = decodeTickets(t, resp)
	require.Len(t, tickets, 1)
	require.Equal(t, "done", tickets[0]["status"])

	// Delete empties the board again.
	resp = doRequest(t, app, http.MethodDelete, "/api/tickets/"+ticketID, nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decodeTickets(t, resp))
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/tickets", map[string]string{
		"title":    "Ship it",
		"assignee": "Dev",
	}, true)
	ticketID := decodeTickets(t, resp)[0]["id"].(string)

	resp = doRequest(t, app, http.MethodPost, "/api/tickets/"+ticketID+"/status",
		map[string]string{"status": "archived"}, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The ticket is unchanged.
	resp = doRequest(t, app, http.MethodGet, "/api/tickets/"+ticketID, nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ticket map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ticket))
	require.Equal(t, "backlog", ticket["status"])
}

func TestStatusUpdateUnknownTicketIs404(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/tickets/no-such-id/status",
		map[string]string{"status": "done"}, true)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, app, http.MethodDelete, "/api/tickets/no-such-id", nil, true)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateTicketValidatesBody(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/tickets",
		map[string]string{"title": "No assignee"}, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchAndStatistics(t *testing.T) {
	app, _ := newTestApp(t)

	for _, body := range []map[string]string{
		{"title": "Fix login bug", "assignee": "Dev"},
		{"title": "Write docs", "assignee": "Dev"},
		{"title": "Fix signup bug", "assignee": "QA"},
	} {
		resp := doRequest(t, app, http.MethodPost, "/api/tickets", body, true)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := doRequest(t, app, http.MethodGet, "/api/tickets/search?assignee=dev&title_contains=FIX", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decodeTickets(t, resp)
	require.Len(t, found, 1)
	require.Equal(t, "Fix login bug", found[0]["title"])

	resp = doRequest(t, app, http.MethodGet, "/api/tickets/statistics", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		TotalTickets         int            `json:"total_tickets"`
		StatusDistribution   map[string]int `json:"status_distribution"`
		AssigneeDistribution map[string]int `json:"assignee_distribution"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, 3, stats.TotalTickets)
	require.Equal(t, map[string]int{"backlog": 3}, stats.StatusDistribution)
	require.Equal(t, map[string]int{"Dev": 2, "QA": 1}, stats.AssigneeDistribution)
}

func TestProtectedResourceDiscovery(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/.well-known/oauth-protected-resource", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var metadata struct {
		Resource             string   `json:"resource"`
		AuthorizationServers []string `json:"authorization_servers"`
		ScopesSupported      []string `json:"scopes_supported"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&metadata))
	require.Equal(t, "http://localhost:8080", metadata.Resource)
	require.Equal(t, []string{"https://test.stytch.com"}, metadata.AuthorizationServers)
	require.Contains(t, metadata.ScopesSupported, "openid")
}

func TestMetricsRecordMappedStatus(t *testing.T) {
	app, metrics := newTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/tickets", nil, false)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.EqualValues(t, 1, metrics.RequestCount("/api/tickets", http.MethodGet, http.StatusUnauthorized))
	require.EqualValues(t, 0, metrics.RequestCount("/api/tickets", http.MethodGet, http.StatusOK))
	require.EqualValues(t, 1, metrics.ErrorCount("/api/tickets", http.MethodGet, "UNAUTHORIZED"))

	resp = doRequest(t, app, http.MethodGet, "/api/tickets", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, metrics.RequestCount("/api/tickets", http.MethodGet, http.StatusOK))
}
