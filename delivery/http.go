package delivery

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/jsonmapper/integration-mapper/azure"
	jsonclient "github.com/jsonmapper/integration-mapper/json"
	"github.com/jsonmapper/integration-mapper/types"
)

const authorizationHeader = "Authorization"

type responseHeader struct {
	ContentType string `header:"content-type"`
}

type HTTPDeliveryClient struct {
	Client      *http.Client
	TokenClient azure.ITokenClient
	Timeout     time.Duration
	Logger      *logrus.Logger
}

// NewHTTPDeliveryClient builds a client; tokenClient may be nil when no
// target uses the azure auth type.
func NewHTTPDeliveryClient(timeout time.Duration, tokenClient azure.ITokenClient, logger *logrus.Logger) *HTTPDeliveryClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPDeliveryClient{
		Client:      &http.Client{},
		TokenClient: tokenClient,
		Timeout:     timeout,
		Logger:      logger,
	}
}

func (httpClient *HTTPDeliveryClient) Deliver(ctx context.Context, target types.Target, output map[string]any) (*Result, error) {
	headers, err := httpClient.headers(ctx, target)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(target.Method)
	if method == "" {
		method = types.DefaultHTTPMethod
	}

	if output == nil {
		output = map[string]any{}
	}
	body := jsonclient.Sanitize(output)
	result := &Result{
		Request: map[string]any{
			"url":     target.URL,
			"method":  method,
			"headers": redact(headers),
			"body":    body,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, httpClient.Timeout)
	defer cancel()

	var responseBody []byte
	var header responseHeader
	var statusCode int

	flow := gout.New(httpClient.Client)
	start := time.Now()
	switch method {
	case http.MethodGet:
		endpoint, query := splitQuery(target.URL, QueryValues(output).Encode())
		result.Request["query"] = query
		request := flow.GET(endpoint)
		if query != "" {
			request = request.SetQuery(query)
		}
		err = request.
			SetHeader(headers).
			WithContext(ctx).
			BindBody(&responseBody).
			BindHeader(&header).
			Code(&statusCode).
			Do()
	case http.MethodPost:
		err = flow.POST(target.URL).
			SetHeader(headers).
			SetJSON(body).
			WithContext(ctx).
			BindBody(&responseBody).
			BindHeader(&header).
			Code(&statusCode).
			Do()
	default:
		return nil, errors.Errorf("unsupported HTTP method %q", target.Method)
	}
	result.Duration = time.Since(start)

	if err != nil {
		httpClient.Logger.Warnf("Delivery to %s failed: %v", target.URL, err)
		return result, errors.Wrapf(err, "delivering to %s", target.URL)
	}

	result.StatusCode = statusCode
	result.OK = statusCode >= 200 && statusCode < 400
	if !result.OK {
		result.Message = fmt.Sprintf("HTTP %d", statusCode)
	}
	result.Response = map[string]any{
		"status_code": statusCode,
		"headers":     map[string]any{"Content-Type": header.ContentType},
		"body":        decodeResponseBody(responseBody),
	}

	httpClient.Logger.Infof("Delivered %s %s: HTTP %d in %dms", method, target.URL, statusCode, result.Duration.Milliseconds())
	return result, nil
}

func (httpClient *HTTPDeliveryClient) headers(ctx context.Context, target types.Target) (map[string]string, error) {
	headers := map[string]string{}
	for key, value := range target.Headers {
		headers[key] = value
	}

	auth := target.Auth
	switch target.AuthType {
	case types.AuthTypeBearer:
		if auth.Token != "" {
			headers[authorizationHeader] = "Bearer " + auth.Token
		}
	case types.AuthTypeBasic:
		if auth.Username != "" && auth.Password != "" {
			credentials := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
			headers[authorizationHeader] = "Basic " + credentials
		}
	case types.AuthTypeAPIKey:
		if auth.APIKey != "" {
			headerName := auth.HeaderName
			if headerName == "" {
				headerName = types.DefaultAPIKeyHeader
			}
			headers[headerName] = auth.APIKey
		}
	case types.AuthTypeAzure:
		if httpClient.TokenClient == nil {
			return nil, errors.New("azure auth requires a token client")
		}
		token, err := httpClient.TokenClient.GetToken(ctx, auth.Scope)
		if err != nil {
			return nil, err
		}
		headers[authorizationHeader] = "Bearer " + token
	}
	return headers, nil
}

// QueryValues flattens output into query parameters. Nested object keys
// are joined with dots, arrays repeat the key and nulls are dropped.
func QueryValues(output map[string]any) url.Values {
	values := url.Values{}
	addQueryValues(values, "", output)
	return values
}

func addQueryValues(values url.Values, prefix string, object map[string]any) {
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		switch value := object[key].(type) {
		case nil:
		case map[string]any:
			addQueryValues(values, name, value)
		case []any:
			for _, item := range value {
				if item != nil {
					values.Add(name, queryString(item))
				}
			}
		default:
			values.Add(name, queryString(value))
		}
	}
}

func queryString(value any) string {
	switch value.(type) {
	case map[string]any, []any:
		encoded, err := json.Marshal(jsonclient.Sanitize(value))
		if err != nil {
			return ""
		}
		return string(encoded)
	default:
		return cast.ToString(value)
	}
}

// splitQuery moves any query already present on rawURL in front of query.
func splitQuery(rawURL string, query string) (string, string) {
	endpoint, existing, found := strings.Cut(rawURL, "?")
	if !found || existing == "" {
		return endpoint, query
	}
	if query == "" {
		return endpoint, existing
	}
	return endpoint, existing + "&" + query
}

func redact(headers map[string]string) map[string]any {
	redacted := map[string]any{}
	for key, value := range headers {
		if strings.EqualFold(key, authorizationHeader) {
			continue
		}
		redacted[key] = value
	}
	return redacted
}

func decodeResponseBody(body []byte) any {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return map[string]any{"body": string(body)}
	}
	return decoded
}
