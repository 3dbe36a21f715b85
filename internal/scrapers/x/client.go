// client.go contains the http side of talking to the X web GraphQL api, it knows nothing about
// the shape of the documents it returns.

package x

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"xstream-backend/internal/components/assert"
	"xstream-backend/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/mazen160/go-random"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	report_client_graphql = "client.graphql"
)

const (
	DefaultBaseURL = "https://x.com/i/api/graphql"
	// DefaultBearer is the public token the web client itself ships with.
	DefaultBearer = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"
)

type ClientOptions struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// AuthToken and CSRFToken are the `auth_token` and `ct0` cookies of a logged in session.
	AuthToken string
	CSRFToken string
	// Bearer defaults to DefaultBearer.
	Bearer string
	// RequestsPerSecond <= 0 disables pacing.
	RequestsPerSecond float64
	Timeout           time.Duration
	// QueryIDs overrides the GraphQL query id of an operation, keyed by operation name.
	QueryIDs map[string]string
	// DumpDir, when set, receives a copy of every response body.
	DumpDir string
}

// ResponseError is returned when upstream answered but not with a usable document.
type ResponseError struct {
	Operation  string
	StatusCode int
	Messages   []string
}

func (e ResponseError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, strings.Join(e.Messages, "; "))
}

type Client struct {
	http     *resty.Client
	baseUrl  string
	queryIDs map[string]string
	dump     *responseDump
	tel      telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("x_scraper", tel)

	baseUrl := opts.BaseURL
	if baseUrl == "" {
		baseUrl = DefaultBaseURL
	}
	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}
	bearer := opts.Bearer
	if bearer == "" {
		bearer = DefaultBearer
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient.SetTimeout(timeout)

	httpClient.SetHeaders(map[string]string{
		"user-agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"authorization":             "Bearer " + bearer,
		"content-type":              "application/json",
		"x-twitter-active-user":     "yes",
		"x-twitter-client-language": "en",
	})
	if opts.AuthToken != "" {
		httpClient.SetHeader("x-twitter-auth-type", "OAuth2Session")
		httpClient.SetCookie(&http.Cookie{Name: "auth_token", Value: opts.AuthToken})
	}
	if opts.CSRFToken != "" {
		httpClient.SetHeader("x-csrf-token", opts.CSRFToken)
		httpClient.SetCookie(&http.Cookie{Name: "ct0", Value: opts.CSRFToken})
	}

	if opts.RequestsPerSecond > 0 {
		// burst of 1 keeps requests evenly spaced
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		transactionID, err := random.String(32)
		if err != nil {
			return fmt.Errorf("generate transaction id: %w", err)
		}
		req.SetHeader("x-client-transaction-id", transactionID)
		return nil
	})

	telemetry.InstrumentResty(httpClient, tel)

	client := &Client{
		http:     httpClient,
		baseUrl:  strings.TrimSuffix(baseUrl, "/"),
		queryIDs: opts.QueryIDs,
		tel:      tel,
	}
	if opts.DumpDir != "" {
		dump, err := newResponseDump(opts.DumpDir)
		if err != nil {
			return nil, err
		}
		client.dump = &dump
	}
	return client, nil
}

func (c *Client) queryID(op Operation) string {
	if id, ok := c.queryIDs[op.Name]; ok && id != "" {
		return id
	}
	return op.QueryID
}

type graphqlError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// Graphql runs a GraphQL query and returns the raw response body. A response carrying errors
// is only a failure when it carries no data, upstream routinely reports partial errors
// alongside a perfectly usable document.
func (c *Client) Graphql(ctx context.Context, op Operation, variables map[string]any) ([]byte, error) {
	c.tel.ReportDebug(report_client_graphql, op.Name, variables)

	encodedVariables, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("marshal variables: %w", err)
	}
	encodedFeatures, err := json.Marshal(op.features())
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}
	params := map[string]string{
		"variables": string(encodedVariables),
		"features":  string(encodedFeatures),
	}
	if len(op.FieldToggles) > 0 {
		encodedToggles, err := json.Marshal(op.FieldToggles)
		if err != nil {
			return nil, fmt.Errorf("marshal field toggles: %w", err)
		}
		params["fieldToggles"] = string(encodedToggles)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(fmt.Sprintf("%s/%s/%s", c.baseUrl, c.queryID(op), op.Name))
	if err != nil {
		c.tel.ReportBroken(report_client_graphql, fmt.Errorf("fetch: %w", err), op.Name)
		return nil, err
	}

	body := res.Body()
	if c.dump != nil {
		path, err := c.dump.write(op.Name, body)
		if err != nil {
			c.tel.ReportWarning(report_client_graphql, fmt.Errorf("dump response: %w", err))
		} else {
			c.tel.ReportDebug(report_client_graphql, "dumped response", path)
		}
	}
	var envelope graphqlEnvelope
	decodeErr := json.Unmarshal(body, &envelope)

	if res.IsError() {
		err := ResponseError{Operation: op.Name, StatusCode: res.StatusCode()}
		if decodeErr == nil {
			err.Messages = errorMessages(envelope.Errors)
		}
		c.tel.ReportBroken(report_client_graphql, err)
		return nil, err
	}
	if decodeErr != nil {
		c.tel.ReportBroken(report_client_graphql, fmt.Errorf("unmarshal json: %w", decodeErr), op.Name)
		return nil, decodeErr
	}
	if len(envelope.Errors) > 0 {
		if !hasData(envelope.Data) {
			err := ResponseError{
				Operation:  op.Name,
				StatusCode: res.StatusCode(),
				Messages:   errorMessages(envelope.Errors),
			}
			c.tel.ReportBroken(report_client_graphql, err)
			return nil, err
		}
		c.tel.ReportWarning(report_client_graphql, op.Name, errorMessages(envelope.Errors))
	}

	return body, nil
}

func hasData(data json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(data))
	return trimmed != "" && trimmed != "null" && trimmed != "{}"
}

func errorMessages(errs []graphqlError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Code != 0 {
			out = append(out, fmt.Sprintf("(%d) %s", e.Code, e.Message))
			continue
		}
		out = append(out, e.Message)
	}
	return out
}
