package intake

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ehr/healthreport/internal/domain/healthrecord"
)

// APIError is a non-2xx answer from the records API.
type APIError struct {
	Status  int
	Message string
	Details string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " " + e.Fields[k]
		}
		msg += ": " + strings.Join(parts, ", ")
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return fmt.Sprintf("%d: %s", e.Status, msg)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type apiErrorBody struct {
	Error   string            `json:"error"`
	Details string            `json:"details"`
	Fields  map[string]string `json:"fields"`
}

// Report is a downloaded PDF.
type Report struct {
	Filename string
	Content  []byte
}

// Client talks to a running healthreport server. Requests are never retried.
type Client struct {
	http *resty.Client
}

// NewClient targets the API of the server at baseURL. An empty token sends no
// Authorization header.
func NewClient(baseURL, token string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/api/v1").
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetTimeout(60 * time.Second)
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

// CreateRecord validates the form, submits it once and returns the new id.
func (c *Client) CreateRecord(ctx context.Context, form Form) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}

	var rec healthrecord.HealthRecord
	var apiErr apiErrorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(form).
		SetResult(&rec).
		SetError(&apiErr).
		Post("/health-records")
	if err != nil {
		return "", fmt.Errorf("create health record: %w", err)
	}
	if resp.IsError() {
		return "", toAPIError(resp, apiErr)
	}
	if rec.ID == "" {
		return "", errors.New("create health record: response carried no id")
	}
	return rec.ID, nil
}

// GenerateReport asks the server to render the record and returns the PDF.
func (c *Client) GenerateReport(ctx context.Context, recordID string) (*Report, error) {
	var apiErr apiErrorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/pdf, application/json").
		SetBody(map[string]string{"recordId": recordID}).
		SetError(&apiErr).
		Post("/health-reports")
	if err != nil {
		return nil, fmt.Errorf("generate health report: %w", err)
	}
	if resp.IsError() {
		return nil, toAPIError(resp, apiErr)
	}

	filename := attachmentName(resp.Header().Get("Content-Disposition"))
	if filename == "" {
		filename = "health-report-" + recordID + ".pdf"
	}
	return &Report{Filename: filename, Content: resp.Body()}, nil
}

func toAPIError(resp *resty.Response, body apiErrorBody) *APIError {
	e := &APIError{
		Status:  resp.StatusCode(),
		Message: body.Error,
		Details: body.Details,
		Fields:  body.Fields,
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(resp.String())
	}
	return e
}

func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
