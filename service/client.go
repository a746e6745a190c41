package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ProxyServiceClient provides a client
// for making requests and decoding responses
// to the composer service API
type ProxyServiceClient struct {
	*http.Client
	config            ProxyServiceClientConfig
	DebugLogResponses bool
}

// ProxyServiceClientConfig wraps values used to
// create a new ProxyServiceClient
type ProxyServiceClientConfig struct {
	ProxyServiceHostname string
	DebugLogResponses    bool
}

// NewProxyServiceClient creates a new ProxyServiceClient
// using the provided config, returning the client and error (if any)
func NewProxyServiceClient(config ProxyServiceClientConfig) (*ProxyServiceClient, error) {
	httpClient := &http.Client{}
	return &ProxyServiceClient{
		Client:            httpClient,
		DebugLogResponses: config.DebugLogResponses,
		config:            config,
	}, nil
}

// GetCacheStatus calls `CacheStatusPath` to get
// how the composer service is caching backend responses
func (c *ProxyServiceClient) GetCacheStatus(ctx context.Context) (CacheStatusResponse, error) {
	var response CacheStatusResponse
	url := c.config.ProxyServiceHostname + CacheStatusPath

	request, err := CreateRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return response, err
	}

	err = Call(*c, request, &response)

	return response, err
}

// Healthcheck calls `HealthcheckPath`, returning a
// *RequestError when the service reports it is unhealthy
func (c *ProxyServiceClient) Healthcheck(ctx context.Context) error {
	request, err := CreateRequest(ctx, http.MethodGet, c.config.ProxyServiceHostname+HealthcheckPath, nil)
	if err != nil {
		return err
	}

	return Call(*c, request, nil)
}

// RequestError provides additional details about the failed request.
type RequestError struct {
	message    string
	URL        string
	StatusCode int
}

// Error implements the error interface for RequestError.
func (err *RequestError) Error() string {
	return err.message
}

// NewError creates a new RequestError
func NewError(message, url string, statusCode int) error {
	return &RequestError{message, url, statusCode}
}

// CreateRequest creates a request to the composer service api,
// params are sent json encoded as the body when non-nil
func CreateRequest(ctx context.Context, method string, path string, params interface{}) (*http.Request, error) {
	var body io.Reader
	if params != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(params); err != nil {
			return nil, err
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return req, &RequestError{
			URL:     path,
			message: err.Error(),
		}
	}
	return req, nil
}

// Call makes an http request to a JSON HTTP api
// decoding the JSON response to the result interface if non-nil
// returning error (if any)
func Call(client ProxyServiceClient, request *http.Request, result interface{}) error {
	response, err := client.Do(request)

	if err != nil {
		return &RequestError{
			URL:     request.URL.String(),
			message: err.Error(),
		}
	}

	defer response.Body.Close()

	if !(response.StatusCode >= 200 && response.StatusCode <= 299) {
		requestURL := request.URL.String()
		return &RequestError{
			StatusCode: response.StatusCode,
			URL:        requestURL,
			message:    fmt.Sprintf("request to %s error server http error %d", requestURL, response.StatusCode),
		}
	}

	// If no result is expected, don't attempt to decode a potentially
	// empty response stream and avoid incurring EOF errors
	if result == nil {
		return nil
	}
	// Check if debug is on
	if client.DebugLogResponses {
		var bodyBytes []byte
		if response.Body != nil {
			bodyBytes, err = io.ReadAll(response.Body)
			if err != nil {
				return &RequestError{
					URL:     request.URL.String(),
					message: err.Error(),
				}
			}
			fmt.Printf("Request Path %s \n Response Body %s \n  Response Status Code %d \n ", request.URL, string(bodyBytes), response.StatusCode)
		}
		// Repopulate body with the data read
		response.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}
	err = json.NewDecoder(response.Body).Decode(result)
	if err != nil {
		return &RequestError{
			URL:     request.URL.String(),
			message: err.Error(),
		}
	}
	return nil
}
