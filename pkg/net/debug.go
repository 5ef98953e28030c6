package net

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
)

// PrintHTTPResponse logs the response headers at debug level.
func PrintHTTPResponse(resp *http.Response) {
	if resp == nil {
		return
	}
	if dump, err := httputil.DumpResponse(resp, false); err == nil {
		slog.Debug("http response", "dump", string(dump))
	}
}
