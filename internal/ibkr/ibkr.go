// Package ibkr downloads flex query statements from the Interactive Brokers
// flex web service. Requesting a report is a two-step protocol: submit the
// query, then poll the returned reference until the statement is generated.
package ibkr

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Error codes IBKR returns while a statement is still being generated.
const (
	codeStatementGenerating = 1018
	codeStatementNotReady   = 1019
	codeStatementInProgress = 1021
)

// Client defines the flex web service interface. Implemented by
// FlexClient and by test doubles.
type Client interface {
	FetchStatement(ctx context.Context, token, queryID string) (QueryResponse, error)
}

// FlexClient talks to the Interactive Brokers flex web service.
type FlexClient struct {
	httpClient *http.Client
	requestURL string
}

// NewFlexClient creates a client against the production IBKR endpoint.
func NewFlexClient() *FlexClient {
	return &FlexClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		requestURL: "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService/SendRequest",
	}
}

// NewFlexClientWithBaseURL creates a client against a custom endpoint.
// Used by tests to point at a local server.
func NewFlexClientWithBaseURL(requestURL string) *FlexClient {
	c := NewFlexClient()
	c.requestURL = requestURL
	return c
}

// FetchStatement requests a flex report and polls until it is available.
func (c *FlexClient) FetchStatement(ctx context.Context, token, queryID string) (QueryResponse, error) {
	if token == "" || queryID == "" {
		return QueryResponse{}, fmt.Errorf("flex token and query id are required")
	}

	ack, err := c.submitRequest(ctx, token, queryID)
	if err != nil {
		return QueryResponse{}, err
	}

	return c.pollStatement(ctx, token, ack)
}

func (c *FlexClient) submitRequest(ctx context.Context, token, queryID string) (RequestResponse, error) {
	endpoint := fmt.Sprintf("%s?t=%s&q=%s&v=3", c.requestURL, url.QueryEscape(token), url.QueryEscape(queryID))

	var ack RequestResponse
	if err := c.getXML(ctx, endpoint, &ack); err != nil {
		return RequestResponse{}, fmt.Errorf("flex request failed: %w", err)
	}

	if ack.ErrorCode != nil {
		msg := ""
		if ack.ErrorMessage != nil {
			msg = *ack.ErrorMessage
		}
		return RequestResponse{}, fmt.Errorf("ibkr error %d: %s", *ack.ErrorCode, msg)
	}
	if ack.Status != "Success" {
		return RequestResponse{}, fmt.Errorf("flex request rejected with status %q", ack.Status)
	}

	return ack, nil
}

func (c *FlexClient) pollStatement(ctx context.Context, token string, ack RequestResponse) (QueryResponse, error) {
	endpoint := fmt.Sprintf("%s?t=%s&q=%d&v=3", ack.URL, url.QueryEscape(token), ack.ReferenceCode)

	backoff := 2 * time.Second
	const maxBackoff = 30 * time.Second
	const maxAttempts = 10

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return QueryResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		body, err := c.get(ctx, endpoint)
		if err != nil {
			return QueryResponse{}, err
		}

		var statement QueryResponse
		if err := xml.Unmarshal(body, &statement); err == nil && statement.XMLName.Local == "FlexQueryResponse" {
			statement.RetrievedAt = time.Now().UTC()
			return statement, nil
		}

		// Not a statement yet: either still generating or a hard error.
		var status RequestResponse
		if err := xml.Unmarshal(body, &status); err != nil {
			return QueryResponse{}, fmt.Errorf("failed to decode flex response: %w", err)
		}
		if status.ErrorCode == nil {
			return QueryResponse{}, fmt.Errorf("unexpected flex response with status %q", status.Status)
		}

		switch *status.ErrorCode {
		case codeStatementGenerating, codeStatementNotReady, codeStatementInProgress:
			continue
		default:
			msg := ""
			if status.ErrorMessage != nil {
				msg = *status.ErrorMessage
			}
			return QueryResponse{}, fmt.Errorf("ibkr error %d: %s", *status.ErrorCode, msg)
		}
	}

	return QueryResponse{}, fmt.Errorf("flex statement not ready after %d attempts", maxAttempts)
}

func (c *FlexClient) getXML(ctx context.Context, endpoint string, dest any) error {
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	return xml.Unmarshal(body, dest)
}

func (c *FlexClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
