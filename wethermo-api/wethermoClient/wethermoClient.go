package wethermoClient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/zabeloliver/wethermo-remote/wethermo-api/wethermoStructs"
	"go.uber.org/zap"
)

// DefaultHost is the thermostat the page was originally served against.
const DefaultHost = "http://mpetra.ddns.net"

type WethermoApiClient struct {
	Host   string
	client http.Client
	logger *zap.SugaredLogger
}

// NewWethermoApiClient returns a client for the thermostat at host.
// A timeout of zero leaves requests unbounded.
func NewWethermoApiClient(host string, timeout time.Duration, logger *zap.SugaredLogger) *WethermoApiClient {
	httpClient := http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 30 * time.Second,
			}).DialContext,
			IdleConnTimeout: 90 * time.Second,
		},
		Timeout: timeout,
	}

	return &WethermoApiClient{
		Host:   host,
		client: httpClient,
		logger: logger,
	}
}

func (c *WethermoApiClient) getResourcePath(ctx context.Context, path string) ([]byte, error) {
	url, err := url.JoinPath(c.Host, path)
	if err != nil {
		return nil, fmt.Errorf("wethermo: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wethermo: create request: %w", err)
	}
	c.logger.Debugf("GET %s", url)
	r, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wethermo: get %s: %w", path, err)
	}

	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("wethermo: read %s: %w", path, err)
	}
	if r.StatusCode < 200 || r.StatusCode >= 300 {
		return nil, fmt.Errorf("wethermo: get %s: unexpected status %d: %s", path, r.StatusCode, string(body))
	}
	return body, nil
}

// GetInfo fetches the current status report.
func (c *WethermoApiClient) GetInfo(ctx context.Context) (wethermoStructs.StatusReport, error) {
	var report wethermoStructs.StatusReport

	body, err := c.getResourcePath(ctx, wethermoStructs.InfoPath)
	if err != nil {
		return report, err
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return report, fmt.Errorf("wethermo: decode status report: %w", err)
	}
	c.logger.Debug("Get Status Report Fields: ", len(report.Fields))
	return report, nil
}

// SendCommand issues a control request and returns the server's answer as is.
func (c *WethermoApiClient) SendCommand(ctx context.Context, cmd wethermoStructs.Command) (wethermoStructs.ControlAck, error) {
	body, err := c.getResourcePath(ctx, cmd.Path())
	if err != nil {
		return "", err
	}
	return wethermoStructs.ControlAck(body), nil
}
