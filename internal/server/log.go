package server

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

func logMiddleware(next http.Handler, logger *logrus.Logger, corsEnabled bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		setCORSHeaders(w, corsEnabled)
		sw := newStatusResponseWriter(w)
		next.ServeHTTP(sw, r)

		entry := logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.Status(),
			"bytes":    sw.Bytes(),
			"duration": time.Since(start).String(),
		})
		if sw.Status() >= http.StatusInternalServerError {
			entry.Error("http request")
			return
		}
		entry.Info("http request")
	})
}
