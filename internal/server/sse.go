package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
)

// writeSSE drains events to the client, one `data: {"event":..,"data":..}`
// frame per event. It returns when the channel is closed or the client is gone.
func writeSSE(c echo.Context, events <-chan core.Event) error {
	resp := c.Response()
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache, no-transform")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			data, _ = json.Marshal(core.Event{Name: core.EventError, Data: core.ErrorPayload{Message: "encode event: " + err.Error()}})
		}
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
			return nil
		}
		flusher.Flush()
	}
	return nil
}
