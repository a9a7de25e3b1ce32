package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gofiber/fiber/v2"
)

// LambdaAdapter runs API Gateway proxy events through the same fiber app that
// serves plain HTTP.
type LambdaAdapter struct {
	app *fiber.App
}

func NewLambdaAdapter(app *fiber.App) (*LambdaAdapter, error) {
	if app == nil {
		return nil, errors.New("handler: fiber app must not be nil")
	}
	return &LambdaAdapter{app: app}, nil
}

// Handle is the lambda.Start entry point.
func (a *LambdaAdapter) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := toHTTPRequest(ctx, event)
	if err != nil {
		return jsonProxyResponse(http.StatusBadRequest, `{"error":"`+msgInvalidBody+`"}`), nil
	}

	resp, err := a.app.Test(req, -1)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("handler: dispatch %s %s: %w", event.HTTPMethod, event.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("handler: read response: %w", err)
	}

	out := events.APIGatewayProxyResponse{
		StatusCode:        resp.StatusCode,
		Headers:           make(map[string]string, len(resp.Header)),
		MultiValueHeaders: make(map[string][]string, len(resp.Header)),
		Body:              string(body),
	}
	for k, vs := range resp.Header {
		if len(vs) == 0 {
			continue
		}
		out.Headers[k] = vs[0]
		out.MultiValueHeaders[k] = vs
	}
	return out, nil
}

func toHTTPRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("handler: decode base64 body: %w", err)
		}
		body = decoded
	}

	path := event.Path
	if path == "" {
		path = "/"
	}
	target := url.URL{Scheme: "http", Host: "lambda", Path: path, RawQuery: eventQuery(event).Encode()}

	method := strings.ToUpper(event.HTTPMethod)
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("handler: build request: %w", err)
	}
	for k, vs := range event.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range event.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	req.ContentLength = int64(len(body))
	return req, nil
}

func eventQuery(event events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	for k, vs := range event.MultiValueQueryStringParameters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, v := range event.QueryStringParameters {
		if !q.Has(k) {
			q.Set(k, v)
		}
	}
	return q
}

func jsonProxyResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}
