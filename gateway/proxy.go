package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/sirupsen/logrus"
)

// hopHeaders are connection-scoped and never forwarded
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// ServiceClient forwards requests to one backend service
type ServiceClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// ServiceClients holds the backends behind the gateway
type ServiceClients struct {
	Backoffice *ServiceClient
	Activity   *ServiceClient
}

// NewServiceClient creates a client for the service at baseURL
func NewServiceClient(name, baseURL string) *ServiceClient {
	return &ServiceClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ProxyRequest forwards the request unchanged, Authorization included;
// the backend authenticates the caller.
func (sc *ServiceClient) ProxyRequest(c *gin.Context) {
	targetURL := sc.baseURL + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, c.Request.Body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to create request")
		return
	}
	req.ContentLength = c.Request.ContentLength
	copyHeaders(req.Header, c.Request.Header)
	req.Header.Set("X-Forwarded-For", c.ClientIP())
	if id := c.GetString(requestIDKey); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		utils.Logger.WithError(err).WithFields(logrus.Fields{
			"service": sc.name,
			"path":    c.Request.URL.Path,
		}).Error("Failed to reach service")
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to communicate with "+sc.name)
		return
	}
	defer resp.Body.Close()

	copyHeaders(c.Writer.Header(), resp.Header)
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		utils.Logger.WithError(err).WithField("service", sc.name).Warn("Response copy interrupted")
	}
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
}

// HealthCheck checks if a service is healthy
func (sc *ServiceClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}
	return nil
}

// ServiceStatus is one backend's health
type ServiceStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// GetServiceStatus checks every backend concurrently. The bool is false if
// any backend is unhealthy.
func (scs *ServiceClients) GetServiceStatus(ctx context.Context) (map[string]ServiceStatus, bool) {
	clients := []*ServiceClient{scs.Backoffice, scs.Activity}
	status := make(map[string]ServiceStatus, len(clients))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, sc := range clients {
		wg.Add(1)
		go func(sc *ServiceClient) {
			defer wg.Done()
			s := ServiceStatus{Healthy: true}
			if err := sc.HealthCheck(ctx); err != nil {
				s = ServiceStatus{Error: err.Error()}
			}
			mu.Lock()
			status[sc.name] = s
			mu.Unlock()
		}(sc)
	}
	wg.Wait()

	healthy := true
	for _, s := range status {
		healthy = healthy && s.Healthy
	}
	return status, healthy
}
