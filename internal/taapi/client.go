package taapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPClient talks to the live bulk indicator endpoint
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPClient creates a client for the live provider
func NewHTTPClient(apiKey, baseURL string, timeout time.Duration, logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// bulkConstruct is the wire shape of one bulk query
type bulkConstruct struct {
	Exchange   string          `json:"exchange"`
	Symbol     string          `json:"symbol"`
	Interval   string          `json:"interval"`
	Indicators []bulkIndicator `json:"indicators"`
}

type bulkIndicator struct {
	Indicator string `json:"indicator"`
}

type bulkPayload struct {
	Secret    string        `json:"secret"`
	Construct bulkConstruct `json:"construct"`
}

// FetchBulk posts one bulk query and decodes the response. Non-200 statuses
// and transport failures come back as classified ProviderErrors.
func (c *HTTPClient) FetchBulk(ctx context.Context, req BulkRequest) (*BulkResponse, error) {
	indicators := make([]bulkIndicator, 0, len(req.Indicators))
	for _, id := range req.Indicators {
		indicators = append(indicators, bulkIndicator{Indicator: id})
	}

	payload := bulkPayload{
		Secret: c.apiKey,
		Construct: bulkConstruct{
			Exchange:   req.Exchange,
			Symbol:     req.Symbol,
			Interval:   req.Interval,
			Indicators: indicators,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding bulk request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bulk", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error building bulk request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		perr := classifyHTTPStatus(resp.StatusCode, string(respBody))
		if perr.Class == ClassBadRequest {
			// Malformed requests are never retried, just logged
			c.logger.Warn().
				Str("symbol", req.Symbol).
				Str("interval", req.Interval).
				Str("body", string(respBody)).
				Msg("Provider rejected bulk request")
		}
		return nil, perr
	}

	var bulk BulkResponse
	if err := json.Unmarshal(respBody, &bulk); err != nil {
		return nil, fmt.Errorf("error parsing bulk response: %w", err)
	}

	return &bulk, nil
}
