package mindee

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gratefultolord/insurance_bot/internal/metrics"
	"github.com/gratefultolord/insurance_bot/internal/models"
	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

const (
	DefaultPassportURL = "https://api.mindee.net/v1/products/mindee/passport/v1/predict"
	DefaultVehicleURL  = "https://api.mindee.net/v1/products/Whylek/vehicle_registration/v1/predict_async"

	DefaultPollInterval    = 3 * time.Second
	DefaultMaxPollAttempts = 30

	jobCompleted = "completed"
	jobFailed    = "failed"
)

var (
	ErrMissingAPIKey    = errors.New("mindee: api key is missing")
	ErrIncompleteResult = errors.New("mindee: incomplete extraction result")
	ErrJobFailed        = errors.New("mindee: job failed")
	ErrJobNotFound      = errors.New("mindee: job not found")
	ErrPollTimeout      = errors.New("mindee: job did not complete within the maximum attempts")
)

// StatusError is returned when Mindee answers with a status other than the expected one.
type StatusError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mindee: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Message)
}

type Client struct {
	apiKey          string
	passportURL     string
	vehicleURL      string
	httpClient      *http.Client
	pollInterval    time.Duration
	maxPollAttempts int
	metrics         *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithPassportURL(url string) Option {
	return func(c *Client) {
		c.passportURL = strings.TrimSpace(url)
	}
}

func WithVehicleURL(url string) Option {
	return func(c *Client) {
		c.vehicleURL = strings.TrimSpace(url)
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

func WithMaxPollAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPollAttempts = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient accepts an empty key; every extraction then fails with ErrMissingAPIKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:          strings.TrimSpace(apiKey),
		passportURL:     DefaultPassportURL,
		vehicleURL:      DefaultVehicleURL,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		pollInterval:    DefaultPollInterval,
		maxPollAttempts: DefaultMaxPollAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type field struct {
	Value string `json:"value"`
}

type passportPrediction struct {
	Surname    field   `json:"surname"`
	GivenNames []field `json:"given_names"`
	BirthDate  field   `json:"birth_date"`
}

type vehiclePrediction struct {
	VIN          field `json:"vehicle_identification_number"`
	LicensePlate field `json:"license_plate_number"`
	Make         field `json:"vehicle_make"`
	Model        field `json:"vehicle_model"`
}

type document[P any] struct {
	Inference struct {
		Prediction P `json:"prediction"`
	} `json:"inference"`
}

type passportResponse struct {
	Document document[passportPrediction] `json:"document"`
}

// job is the transient handle of an asynchronous extraction.
type job struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	PollingURL string `json:"polling_url"`
}

type jobResponse struct {
	Job      job                         `json:"job"`
	Document document[vehiclePrediction] `json:"document"`
}

type errorResponse struct {
	APIRequest struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"api_request"`
}

// ExtractPassport runs the synchronous passport model. A result without a surname is rejected.
func (c *Client) ExtractPassport(ctx context.Context, image []byte) (passport *models.Passport, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveExtraction(metrics.DocumentPassport, start, err) }()

	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	status, body, err := c.submit(ctx, c.passportURL, image)
	if err != nil {
		return nil, fmt.Errorf("Client.ExtractPassport: %w", err)
	}
	logx.Debug().Int("status", status).Msg("mindee passport response")

	if status != http.StatusCreated {
		return nil, newStatusError(status, c.passportURL, body)
	}

	var resp passportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("Client.ExtractPassport: decode response: %w", err)
	}

	pred := resp.Document.Inference.Prediction
	if strings.TrimSpace(pred.Surname.Value) == "" {
		return nil, fmt.Errorf("Client.ExtractPassport: no surname in prediction: %w", ErrIncompleteResult)
	}

	passport = &models.Passport{
		Surname:   pred.Surname.Value,
		BirthDate: pred.BirthDate.Value,
	}
	for _, name := range pred.GivenNames {
		if name.Value != "" {
			passport.GivenNames = append(passport.GivenNames, name.Value)
		}
	}

	return passport, nil
}

// ExtractVehicle submits the document to the asynchronous vehicle model and polls
// until the job reaches a terminal status or the attempt ceiling is hit.
func (c *Client) ExtractVehicle(ctx context.Context, image []byte) (vehicle *models.Vehicle, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveExtraction(metrics.DocumentVehicle, start, err) }()

	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	status, body, err := c.submit(ctx, c.vehicleURL, image)
	if err != nil {
		return nil, fmt.Errorf("Client.ExtractVehicle: %w", err)
	}
	logx.Debug().Int("status", status).Msg("mindee vehicle submit response")

	if status != http.StatusAccepted {
		return nil, newStatusError(status, c.vehicleURL, body)
	}

	var resp jobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("Client.ExtractVehicle: decode submit response: %w", err)
	}
	if resp.Job.ID == "" || resp.Job.PollingURL == "" {
		return nil, fmt.Errorf("Client.ExtractVehicle: no job id or polling url: %w", ErrIncompleteResult)
	}

	return c.poll(ctx, resp.Job)
}

func (c *Client) poll(ctx context.Context, j job) (*models.Vehicle, error) {
	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		c.metrics.IncrementPollAttempt()

		status, body, err := c.get(ctx, j.PollingURL)
		if err != nil {
			return nil, fmt.Errorf("Client.poll: %w", err)
		}
		logx.Debug().Str("job_id", j.ID).Int("attempt", attempt).Int("status", status).Msg("mindee poll")

		switch status {
		case http.StatusOK:
			var resp jobResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("Client.poll: decode response: %w", err)
			}

			switch resp.Job.Status {
			case jobCompleted:
				pred := resp.Document.Inference.Prediction
				return &models.Vehicle{
					LicensePlate: pred.LicensePlate.Value,
					VIN:          pred.VIN.Value,
					Make:         pred.Make.Value,
					Model:        pred.Model.Value,
				}, nil
			case jobFailed:
				return nil, fmt.Errorf("Client.poll: job %s: %w", j.ID, ErrJobFailed)
			}
		case http.StatusNotFound:
			return nil, fmt.Errorf("Client.poll: job %s: %w", j.ID, ErrJobNotFound)
		}

		if attempt == c.maxPollAttempts {
			break
		}

		if err := wait(ctx, c.pollInterval); err != nil {
			return nil, fmt.Errorf("Client.poll: %w", err)
		}
	}

	return nil, fmt.Errorf("Client.poll: job %s after %d attempts: %w", j.ID, c.maxPollAttempts, ErrPollTimeout)
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) submit(ctx context.Context, url string, image []byte) (int, []byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("document", "document.jpg")
	if err != nil {
		return 0, nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return 0, nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req)
}

func (c *Client) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Authorization", "Token "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}

	return res.StatusCode, body, nil
}

func newStatusError(status int, url string, body []byte) *StatusError {
	msg := "Unknown error"

	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.APIRequest.Error.Message != "" {
		msg = resp.APIRequest.Error.Message
	}

	return &StatusError{StatusCode: status, URL: url, Message: msg}
}
