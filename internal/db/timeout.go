package db

import (
	"context"
	"time"

	"DRFashion-Sync/internal/connection"
)

const (
	defaultConnectTimeoutSeconds = 30
	defaultPingTimeout           = 5 * time.Second
)

func getConnectTimeoutSeconds(config connection.ConnectionConfig) int {
	timeoutSeconds := config.Timeout
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultConnectTimeoutSeconds
	}
	return timeoutSeconds
}

func getConnectTimeout(config connection.ConnectionConfig) time.Duration {
	return time.Duration(getConnectTimeoutSeconds(config)) * time.Second
}

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultPingTimeout
	}
	return context.WithTimeout(context.Background(), d)
}
