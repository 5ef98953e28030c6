// Package net downloads remote gradebook exports.
package net

import (
	"net/http"
	"time"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
	clientAgent      = "gradepulse"
)

var reqTransport = &http.Transport{
	MaxIdleConns:          maxIdleConns,
	IdleConnTimeout:       timeoutInSeconds * time.Second,
	DisableCompression:    true,
	ResponseHeaderTimeout: timeoutInSeconds * time.Second,
}

// GetHTTPClient returns a client with the default transport and timeout.
func GetHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   timeoutInSeconds * time.Second,
		Transport: reqTransport,
	}
}
