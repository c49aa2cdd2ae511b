package healthrecord

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const restTable = "/health_records"

// NewRESTClient returns a client for a PostgREST-compatible endpoint rooted
// at baseURL. The key is sent both as apikey and as the bearer token.
func NewRESTClient(baseURL, apiKey string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/rest/v1").
		SetHeader("apikey", apiKey).
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second)
}

type recordRepoREST struct{ client *resty.Client }

// NewRepoREST stores records through a hosted PostgREST table.
func NewRepoREST(client *resty.Client) Repository {
	return &recordRepoREST{client: client}
}

func (r *recordRepoREST) Create(ctx context.Context, h *HealthRecord) error {
	var rows []HealthRecord
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(h.Fields).
		SetResult(&rows).
		Post(restTable)
	if err != nil {
		return fmt.Errorf("insert health record: %w", err)
	}
	if resp.IsError() {
		return restError("insert health record", resp)
	}
	if len(rows) != 1 {
		return fmt.Errorf("insert health record: store returned %d rows", len(rows))
	}
	h.ID = rows[0].ID
	h.CreatedAt = rows[0].CreatedAt
	return nil
}

func (r *recordRepoREST) GetByID(ctx context.Context, id string) (*HealthRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var rows []*HealthRecord
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("id", "eq."+id).
		SetQueryParam("select", "*").
		SetResult(&rows).
		Get(restTable)
	if err != nil {
		return nil, fmt.Errorf("select health record: %w", err)
	}
	if resp.IsError() {
		return nil, restError("select health record", resp)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (r *recordRepoREST) List(ctx context.Context, limit, offset int) ([]*HealthRecord, int, error) {
	var rows []*HealthRecord
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "count=exact").
		SetQueryParams(map[string]string{
			"select": "*",
			"order":  "created_at.desc,id",
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		}).
		SetResult(&rows).
		Get(restTable)
	if err != nil {
		return nil, 0, fmt.Errorf("list health records: %w", err)
	}
	if resp.IsError() {
		return nil, 0, restError("list health records", resp)
	}
	total, ok := parseContentRangeTotal(resp.Header().Get("Content-Range"))
	if !ok {
		total = offset + len(rows)
	}
	return rows, total, nil
}

// parseContentRangeTotal reads the total from "0-24/3573" or "*/0".
func parseContentRangeTotal(v string) (int, bool) {
	_, total, found := strings.Cut(v, "/")
	if !found || total == "*" {
		return 0, false
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, false
	}
	return n, true
}

func restError(op string, resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("%s: store returned %d %s: %s", op, resp.StatusCode(), http.StatusText(resp.StatusCode()), body)
}
