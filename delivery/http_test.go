package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonmapper/integration-mapper/types"
)

type capturedRequest struct {
	Method string
	Query  map[string][]string
	Header http.Header
	Body   []byte
}

func newCapturingServer(t *testing.T, status int, responseBody string) (*httptest.Server, *capturedRequest) {
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Query = r.URL.Query()
		captured.Header = r.Header.Clone()
		captured.Body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(responseBody))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

type mockTokenClient struct {
	Token string
	Err   error
	Scope string
}

func (m *mockTokenClient) GetToken(ctx context.Context, scope string) (string, error) {
	m.Scope = scope
	return m.Token, m.Err
}

func TestHTTPDeliver_PostSendsJSON(t *testing.T) {
	server, captured := newCapturingServer(t, http.StatusCreated, `{"id":"42"}`)
	client := NewHTTPDeliveryClient(0, nil, logrus.New())

	target := types.Target{
		Type:     types.TargetTypeHTTP,
		Method:   "POST",
		URL:      server.URL + "/orders",
		AuthType: types.AuthTypeBearer,
		Auth:     types.Auth{Token: "secret"},
		Headers:  map[string]string{"X-Source": "mapper"},
	}
	output := map[string]any{"order": map[string]any{"id": "A-1", "total": 12.5}}

	result, err := client.Deliver(context.Background(), target, output)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "Bearer secret", captured.Header.Get("Authorization"))
	assert.Equal(t, "mapper", captured.Header.Get("X-Source"))
	assert.Contains(t, captured.Header.Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"order":{"id":"A-1","total":12.5}}`, string(captured.Body))

	assert.True(t, result.OK)
	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, map[string]any{"id": "42"}, result.Response["body"])
	assert.Equal(t, http.StatusCreated, result.Response["status_code"])

	headers := result.Request["headers"].(map[string]any)
	assert.NotContains(t, headers, "Authorization")
	assert.Equal(t, "mapper", headers["X-Source"])
}

func TestHTTPDeliver_GetFlattensQuery(t *testing.T) {
	server, captured := newCapturingServer(t, http.StatusOK, `ok`)
	client := NewHTTPDeliveryClient(0, nil, logrus.New())

	target := types.Target{Type: types.TargetTypeHTTP, Method: "get", URL: server.URL + "/lookup?fixed=1"}
	output := map[string]any{
		"user":   map[string]any{"name": "Ada", "age": float64(36)},
		"tags":   []any{"a", "b"},
		"absent": nil,
	}

	result, err := client.Deliver(context.Background(), target, output)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, captured.Method)
	assert.Equal(t, []string{"Ada"}, captured.Query["user.name"])
	assert.Equal(t, []string{"36"}, captured.Query["user.age"])
	assert.Equal(t, []string{"a", "b"}, captured.Query["tags"])
	assert.Equal(t, []string{"1"}, captured.Query["fixed"])
	assert.NotContains(t, captured.Query, "absent")
	assert.Empty(t, captured.Body)

	assert.True(t, result.OK)
	assert.Equal(t, map[string]any{"body": "ok"}, result.Response["body"])
}

func TestHTTPDeliver_ErrorStatus(t *testing.T) {
	server, _ := newCapturingServer(t, http.StatusBadGateway, `{"error":"upstream"}`)
	client := NewHTTPDeliveryClient(0, nil, logrus.New())

	result, err := client.Deliver(context.Background(), types.Target{Method: "POST", URL: server.URL}, map[string]any{})
	require.NoError(t, err)

	assert.False(t, result.OK)
	assert.Equal(t, "HTTP 502", result.Message)
}

func TestHTTPDeliver_AuthHeaders(t *testing.T) {
	testCases := []struct {
		name     string
		authType types.AuthType
		auth     types.Auth
		header   string
		expected string
	}{
		{"basic", types.AuthTypeBasic, types.Auth{Username: "user", Password: "pass"}, "Authorization", "Basic dXNlcjpwYXNz"},
		{"apikey default header", types.AuthTypeAPIKey, types.Auth{APIKey: "k1"}, "X-API-Key", "k1"},
		{"apikey custom header", types.AuthTypeAPIKey, types.Auth{APIKey: "k2", HeaderName: "X-Token"}, "X-Token", "k2"},
		{"azure", types.AuthTypeAzure, types.Auth{Scope: "api://orders/.default"}, "Authorization", "Bearer entra"},
		{"none", types.AuthTypeNone, types.Auth{Token: "ignored"}, "Authorization", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server, captured := newCapturingServer(t, http.StatusOK, `{}`)
			tokenClient := &mockTokenClient{Token: "entra"}
			client := NewHTTPDeliveryClient(0, tokenClient, logrus.New())

			target := types.Target{Method: "POST", URL: server.URL, AuthType: tc.authType, Auth: tc.auth}
			_, err := client.Deliver(context.Background(), target, map[string]any{"a": 1})
			require.NoError(t, err)

			assert.Equal(t, tc.expected, captured.Header.Get(tc.header))
		})
	}
}

func TestHTTPDeliver_AzureTokenFailure(t *testing.T) {
	client := NewHTTPDeliveryClient(0, &mockTokenClient{Err: errors.New("no identity")}, logrus.New())

	_, err := client.Deliver(context.Background(), types.Target{Method: "POST", URL: "http://127.0.0.1:1", AuthType: types.AuthTypeAzure, Auth: types.Auth{Scope: "s"}}, map[string]any{})
	assert.ErrorContains(t, err, "no identity")
}

func TestHTTPDeliver_UnsupportedMethod(t *testing.T) {
	client := NewHTTPDeliveryClient(0, nil, logrus.New())

	_, err := client.Deliver(context.Background(), types.Target{Method: "DELETE", URL: "http://127.0.0.1:1"}, map[string]any{})
	assert.ErrorContains(t, err, "unsupported HTTP method")
}

func TestHTTPDeliver_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewHTTPDeliveryClient(0, nil, logrus.New())
	result, err := client.Deliver(context.Background(), types.Target{Method: "POST", URL: url}, map[string]any{})

	assert.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, url, result.Request["url"])
}

func TestQueryValues(t *testing.T) {
	values := QueryValues(map[string]any{
		"a":     map[string]any{"b": map[string]any{"c": true}},
		"list":  []any{float64(1), nil, map[string]any{"x": "y"}},
		"empty": nil,
	})

	assert.Equal(t, "true", values.Get("a.b.c"))
	assert.Equal(t, []string{"1", `{"x":"y"}`}, values["list"])
	assert.NotContains(t, values, "empty")
}

func TestSplitQuery(t *testing.T) {
	endpoint, query := splitQuery("http://host/path?x=1", "y=2")
	assert.Equal(t, "http://host/path", endpoint)
	assert.Equal(t, "x=1&y=2", query)

	endpoint, query = splitQuery("http://host/path", "")
	assert.Equal(t, "http://host/path", endpoint)
	assert.Empty(t, query)
}

func TestDecodeResponseBody(t *testing.T) {
	var expected any
	require.NoError(t, json.Unmarshal([]byte(`[1,2]`), &expected))

	assert.Equal(t, expected, decodeResponseBody([]byte(`[1,2]`)))
	assert.Equal(t, map[string]any{"body": "plain"}, decodeResponseBody([]byte("plain")))
}
