// Package client calls the prediction service on behalf of a form and derives
// what the dashboard displays from the answer.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/physickd/platform/pkg/ckd/feature"
	"github.com/physickd/platform/pkg/common/config"
	"github.com/physickd/platform/pkg/common/logger"
	"github.com/physickd/platform/pkg/gateway/httpclient"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const predictPath = "/api/v1/predict"

type Client struct {
	http    *resty.Client
	catalog *feature.Catalog
}

// New builds a client on top of httpClient. Requests are never retried.
func New(baseURL string, httpClient *http.Client, catalog *feature.Catalog) *Client {
	if catalog == nil {
		catalog = feature.Default()
	}
	r := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: r, catalog: catalog}
}

// NewFromConfig builds a client for cfg.PredictionBaseURL. When OIDC client
// credentials are configured every request carries a bearer token.
func NewFromConfig(ctx context.Context, cfg *config.Config, catalog *feature.Catalog) *Client {
	base := httpclient.New(cfg.ClientTimeout)
	if cfg.OIDCTokenURL == "" || cfg.OIDCClientID == "" {
		return New(cfg.PredictionBaseURL, base, catalog)
	}

	creds := clientcredentials.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		TokenURL:     cfg.OIDCTokenURL,
	}
	authed := creds.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	authed.Timeout = cfg.ClientTimeout
	logger.Log.WithField("token_url", cfg.OIDCTokenURL).Debug("prediction client using client credentials")

	return New(cfg.PredictionBaseURL, authed, catalog)
}

// Catalog is the catalog forms are validated against.
func (c *Client) Catalog() *feature.Catalog {
	return c.catalog
}

// Predict validates a raw form and, only if every field passes, asks the
// service for a prediction.
func (c *Client) Predict(ctx context.Context, form map[string]string) (Prediction, error) {
	if errs := c.catalog.ValidateForm(form); len(errs) > 0 {
		return Prediction{}, FormError{Fields: errs}
	}

	body := make(map[string]float64, c.catalog.Len())
	for _, name := range c.catalog.Names() {
		v, err := strconv.ParseFloat(strings.TrimSpace(form[name]), 64)
		if err != nil {
			return Prediction{}, FormError{Fields: []feature.FieldError{{Field: name, Message: err.Error()}}}
		}
		body[name] = v
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(predictPath)
	if err != nil {
		return Prediction{}, networkError(err)
	}
	if resp.IsError() {
		return Prediction{}, apiError(resp)
	}

	return decodePrediction(resp.Body())
}

// Assess runs Predict and Derive together.
func (c *Client) Assess(ctx context.Context, form map[string]string) (Prediction, DisplayResult, error) {
	p, err := c.Predict(ctx, form)
	if err != nil {
		return Prediction{}, DisplayResult{}, err
	}
	display, err := Derive(p)
	if err != nil {
		return p, DisplayResult{}, err
	}
	return p, display, nil
}

// Health calls the service's /health probe.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return networkError(err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

func decodePrediction(raw []byte) (Prediction, error) {
	var p Prediction
	if err := json.Unmarshal(raw, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return Prediction{}, MalformedResultError{Field: typeErr.Field, Reason: "has the wrong type"}
		}
		return Prediction{}, MalformedResultError{Field: "body", Reason: "is not valid JSON"}
	}
	return p, nil
}

func apiError(resp *resty.Response) error {
	e := APIError{Status: resp.StatusCode()}
	var body struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		e.Message = body.Error
		e.Field = body.Field
	} else {
		e.Message = strings.TrimSpace(string(resp.Body()))
	}
	if e.Message == "" {
		e.Message = http.StatusText(e.Status)
	}
	return e
}

func networkError(err error) NetworkError {
	return NetworkError{Err: err, Timeout: httpclient.IsTimeout(err)}
}
