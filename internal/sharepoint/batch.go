package sharepoint

import (
	"context"
	"net/http"
	"strconv"

	"github.com/agentstation/fiscal/pkg/batch"
	"github.com/agentstation/fiscal/pkg/constants"
	"github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
)

type batchRequest struct {
	Requests []subRequest `json:"requests"`
}

type subRequest struct {
	ID      string            `json:"id"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Body    any               `json:"body"`
	Headers map[string]string `json:"headers"`
}

type batchResponse struct {
	Responses []subResponse `json:"responses"`
}

type subResponse struct {
	ID     string         `json:"id"`
	Status int            `json:"status"`
	Body   map[string]any `json:"body"`
}

// buildBatch creates the $batch payload for one physical batch.
func (c *Client) buildBatch(l *List, reqs []batch.Request) batchRequest {
	items := c.listPath(l.ID) + "/items"
	payload := batchRequest{Requests: make([]subRequest, len(reqs))}
	for i, req := range reqs {
		sub := subRequest{
			ID:      subID(req, i),
			Method:  req.Method,
			Headers: map[string]string{"Content-Type": "application/json"},
		}
		fields := l.ToAPI(req.Fields)
		if req.Method == http.MethodPatch {
			sub.URL = items + "/" + req.TargetID + "/fields"
			sub.Body = fields
		} else {
			sub.URL = items
			sub.Body = map[string]any{"fields": fields}
		}
		payload.Requests[i] = sub
	}
	return payload
}

func subID(req batch.Request, i int) string {
	if req.ID != "" {
		return req.ID
	}
	return strconv.Itoa(i + 1)
}

// SubmitBatch sends one physical batch through Graph $batch and returns the results in
// request order. Graph may answer sub-requests in any order.
func (c *Client) SubmitBatch(ctx context.Context, list string, reqs []batch.Request) ([]batch.Result, error) {
	if len(reqs) > constants.MaxBatchRequests {
		return nil, &errors.ValidationError{
			Field:   "requests",
			Value:   len(reqs),
			Message: "Graph accepts at most " + strconv.Itoa(constants.MaxBatchRequests) + " requests per batch",
		}
	}
	l, err := c.List(ctx, list)
	if err != nil {
		return nil, err
	}

	var resp batchResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/$batch", c.buildBatch(l, reqs), &resp); err != nil {
		return nil, err
	}

	byID := make(map[string]subResponse, len(resp.Responses))
	for _, r := range resp.Responses {
		byID[r.ID] = r
	}

	results := make([]batch.Result, len(reqs))
	for i, req := range reqs {
		sub, ok := byID[subID(req, i)]
		if !ok {
			results[i] = batch.Result{Message: "no response for sub-request"}
			continue
		}
		results[i] = toResult(l, req, sub)
	}

	logging.FromContext(ctx).Debug().
		Str("list", list).
		Int("requests", len(reqs)).
		Msg("Submitted batch")
	return results, nil
}

func toResult(l *List, req batch.Request, sub subResponse) batch.Result {
	res := batch.Result{Status: sub.Status}
	if !res.OK() {
		res.Message = errorMessage(sub.Body)
		return res
	}

	if req.Method == http.MethodPost {
		if id, ok := sub.Body["id"].(string); ok {
			res.ID = id
		}
		if fields, ok := sub.Body["fields"].(map[string]any); ok {
			res.Fields = l.FromAPI(fields)
		}
		return res
	}

	res.ID = req.TargetID
	res.Fields = l.FromAPI(sub.Body)
	return res
}

func errorMessage(body map[string]any) string {
	if e, ok := body["error"].(map[string]any); ok {
		code, _ := e["code"].(string)
		msg, _ := e["message"].(string)
		if code != "" {
			return code + ": " + msg
		}
		return msg
	}
	return ""
}
