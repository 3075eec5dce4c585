// Package mlbackend provides the HTTP client for the external Python
// screening service. The service exposes a small JSON API: a health probe,
// a one-time feature-matrix initialization call, a long-running screening
// run, and static PDF report downloads.
//
// Timeouts differ per call. The health probe is short (the service is either
// up or it is not), while a screening run blocks for the whole session plus
// the eye-tracker calibration phase, so its deadline is the requested
// duration plus a generous calibration buffer.
package mlbackend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrUnreachable indicates the screening service could not be reached at all
// (connection refused, timeout, or a failing health probe).
var ErrUnreachable = errors.New("screening service unreachable")

// ErrScreeningFailed indicates the service was reached but reported a
// failure for the requested run.
var ErrScreeningFailed = errors.New("screening run failed")

// ScreeningRequest is the payload for a screening run. VideoPath is always
// null for live capture; the service opens the camera itself.
type ScreeningRequest struct {
	VideoPath     *string `json:"video_path"`
	PatientName   string  `json:"patient_name"`
	PatientID     string  `json:"patient_id"`
	PatientAge    string  `json:"patient_age"`
	Duration      int     `json:"duration"`
	ScreeningType string  `json:"screening_type"`
}

// ScreeningOutcome is the inner result object of a successful run.
type ScreeningOutcome struct {
	Verdict           string             `json:"verdict"`
	Confidence        float64            `json:"confidence"`
	ModelProbs        map[string]float64 `json:"model_probs"`
	PDFReportFilename string             `json:"pdf_report_filename"`
}

// ScreeningResponse is the top-level response of /api/start_screening.
type ScreeningResponse struct {
	Success  bool              `json:"success"`
	Error    string            `json:"error"`
	Duration int               `json:"duration"`
	Result   *ScreeningOutcome `json:"result"`
}

type initializeRequest struct {
	CSVPath string `json:"csv_path"`
}

type initializeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Client talks to the screening service. Construct with New.
type Client struct {
	base              string
	http              *resty.Client
	healthTimeout     time.Duration
	calibrationBuffer time.Duration
}

// New builds a Client for the service at baseURL (e.g. http://localhost:5000).
// healthTimeout bounds the health probe; calibrationBuffer is added to each
// run's requested duration to cover the calibration phase.
func New(baseURL string, healthTimeout, calibrationBuffer time.Duration) *Client {
	if healthTimeout <= 0 {
		healthTimeout = 5 * time.Second
	}
	if calibrationBuffer <= 0 {
		calibrationBuffer = 180 * time.Second
	}
	return &Client{
		base:              strings.TrimRight(baseURL, "/"),
		http:              resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")),
		healthTimeout:     healthTimeout,
		calibrationBuffer: calibrationBuffer,
	}
}

// Health probes GET /api/health. Any transport error, timeout, or non-2xx
// status is reported as ErrUnreachable.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	resp, err := c.http.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: health returned %s", ErrUnreachable, resp.Status())
	}
	return nil
}

// Initialize posts the feature-matrix path to /api/initialize. The service
// loads its models lazily; this call must succeed before the first run.
func (c *Client) Initialize(ctx context.Context, csvPath string) error {
	var out initializeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(initializeRequest{CSVPath: csvPath}).
		SetResult(&out).
		Post("/api/initialize")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: initialize returned %s", ErrUnreachable, resp.Status())
	}
	if !out.Success && out.Error != "" {
		return fmt.Errorf("%w: %s", ErrScreeningFailed, out.Error)
	}
	return nil
}

// StartScreening runs a screening session and blocks until the service
// responds. The call deadline is req.Duration plus the calibration buffer;
// there is no mid-run cancel beyond the context.
func (c *Client) StartScreening(ctx context.Context, req ScreeningRequest) (*ScreeningResponse, error) {
	timeout := time.Duration(req.Duration)*time.Second + c.calibrationBuffer
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out ScreeningResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post("/api/start_screening")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if !resp.IsSuccess() && out.Error == "" {
		return nil, fmt.Errorf("%w: start_screening returned %s", ErrUnreachable, resp.Status())
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "no result returned"
		}
		return nil, fmt.Errorf("%w: %s", ErrScreeningFailed, msg)
	}
	if out.Result == nil {
		return nil, fmt.Errorf("%w: success without result payload", ErrScreeningFailed)
	}
	return &out, nil
}

// ReportURL returns the download URL for a generated PDF report. The file is
// served by the screening service itself; callers redirect to it rather than
// proxying the bytes.
func (c *Client) ReportURL(filename string) string {
	if filename == "" {
		return ""
	}
	return c.base + "/api/download_report/" + filename
}
