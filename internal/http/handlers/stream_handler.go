// Result stream handler.
//
// GET /results/stream is a server-sent-events feed of freshly recorded
// results for the authenticated user. It is the server-side counterpart of
// the dashboard callback the browser app mounted: one attached dashboard
// owns the feed, and attaching again replaces the previous one.
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/services"
)

// StreamResults godoc
// @ID          streamResults
// @Summary     Live result feed
// @Description Streams each freshly recorded screening result for the
// @Description authenticated user as a server-sent `result` event. A new
// @Description connection replaces the previous subscriber.
// @Tags        Results
// @Produce     text/event-stream
//
// @Success     200  {string}  string                  "SSE stream"
// @Failure     404  {object}  handlers.ErrorResponse  "Stream unavailable"
// @Router      /results/stream [get]
func (h *Handlers) StreamResults(c *gin.Context) {
	svc, okSvc := h.resultSvc.(*services.ResultService)
	if !okSvc || svc.Broadcast == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "result stream unavailable")
		return
	}
	uid := userID(c)

	// Buffered hand-off from the publisher; a stalled connection drops
	// events rather than blocking result persistence.
	ch := make(chan domain.ResultRecord, 8)
	unsubscribe := svc.Broadcast.Subscribe(func(rec domain.ResultRecord) {
		if rec.UserID != uid {
			return
		}
		select {
		case ch <- rec:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case rec := <-ch:
			c.SSEvent("result", rec)
			return true
		}
	})
}
