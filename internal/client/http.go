package client

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// getHTTPClient returns a singleton HTTP client shared by every adapter
var (
	httpClient     *http.Client
	httpClientOnce sync.Once
	// streams from reasoning models can run for minutes
	defaultTimeout = 10 * time.Minute
)

func getHTTPClient() *http.Client {
	httpClientOnce.Do(func() {
		transport := &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 5 * time.Minute,
			ForceAttemptHTTP2:     true,
		}

		transport.DialContext = (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext

		httpClient = &http.Client{
			Transport: transport,
			Timeout:   defaultTimeout,
		}
	})
	return httpClient
}
