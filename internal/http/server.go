// Per-route write deadlines.
//
// The server-wide WriteTimeout is sized for ordinary JSON endpoints, but two
// routes legitimately outlive it: POST /screenings/run blocks for the whole
// screening (catalog duration plus the ML calibration buffer, minutes rather
// than seconds), and GET /results/stream stays open for as long as a
// dashboard is attached. Both get their connection deadline adjusted before
// the router runs, via http.ResponseController on the raw writer.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/earlyvue/go-screening-backend/internal/config"
	"github.com/earlyvue/go-screening-backend/internal/services"
)

// RunWindow returns how long a live screening response may take: the longest
// catalog duration, plus the calibration buffer the ML client already waits
// for, plus margin for persistence and serialization.
func RunWindow(cfg config.Config) time.Duration {
	maxSeconds := 0
	for _, st := range (&services.ScreeningService{}).Types() {
		if st.DurationSeconds > maxSeconds {
			maxSeconds = st.DurationSeconds
		}
	}
	return time.Duration(maxSeconds)*time.Second + cfg.ML.CalibrationBuffer + 30*time.Second
}

// ExtendWriteDeadlines wraps next so the screening-run route gets runWindow
// to respond and the result stream gets no write deadline at all. Every other
// route keeps the http.Server WriteTimeout.
func ExtendWriteDeadlines(next http.Handler, basePath string, runWindow time.Duration) http.Handler {
	base := strings.TrimSuffix(basePath, "/")
	runPath := base + "/screenings/run"
	streamPath := base + "/results/stream"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == runPath:
			_ = rc.SetWriteDeadline(time.Now().Add(runWindow))
		case r.Method == http.MethodGet && r.URL.Path == streamPath:
			_ = rc.SetWriteDeadline(time.Time{})
		}
		next.ServeHTTP(w, r)
	})
}
