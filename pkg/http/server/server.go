package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port    int
	Timeout time.Duration
}

// New returns the http server for handler. Handlers are bounded by config.Timeout when withTimeout is set.
func New(ctx context.Context, handler http.Handler, config Config, withTimeout bool) *http.Server {
	if withTimeout && config.Timeout > 0 {
		handler = http.TimeoutHandler(handler, config.Timeout, `{"success":false,"error":{"code":"timeout","message":"request timed out"}}`)
	}

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},

		ReadTimeout:       viper.GetDuration("HTTP_SERVER_READ_TIMEOUT"),
		WriteTimeout:      config.Timeout + viper.GetDuration("HTTP_SERVER_WRITE_TIMEOUT"),
		IdleTimeout:       viper.GetDuration("HTTP_SERVER_IDLE_TIMEOUT"),
		ReadHeaderTimeout: viper.GetDuration("HTTP_SERVER_READ_HEADER_TIMEOUT"),
	}
}
