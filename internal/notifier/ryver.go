package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ryvertools/ryver-relay/internal/config"
	"github.com/ryvertools/ryver-relay/internal/model"
	"github.com/ryvertools/ryver-relay/internal/render"
)

// Ryver rejects request bodies larger than this; oversized bodies are cut
// and suffixed with the truncation marker.
const (
	maxBodySize      = 8180
	truncationMarker = " [... content too big]"
)

// maxErrorBody caps how much of an error response is read for enrichment.
const maxErrorBody = 64 << 10

// destinationKind identifies the Ryver target type a message is posted to.
type destinationKind int

const (
	destTopic destinationKind = iota
	destTeam
	destForum
)

// route is the routing decision derived once from the configuration: which
// destination to post to, under which odata.svc path, and how to describe it
// in logs.
type route struct {
	kind         destinationKind
	id           string
	endpointPath string
	label        string
}

// resolveRoute maps the three optional destination identifiers to a single
// route. Exactly one identifier must be set; zero or several is a
// configuration error.
func resolveRoute(cfg *config.RyverConfig) (route, error) {
	var r route
	count := 0

	if cfg.ForumID != "" {
		count++
		r = route{
			kind:         destForum,
			id:           cfg.ForumID,
			endpointPath: fmt.Sprintf("forums(%s)/Chat.PostMessage()", cfg.ForumID),
			label:        "forum " + cfg.ForumID,
		}
	}
	if cfg.TeamID != "" {
		count++
		r = route{
			kind:         destTeam,
			id:           cfg.TeamID,
			endpointPath: fmt.Sprintf("workrooms(%s)/Chat.PostMessage()", cfg.TeamID),
			label:        "team " + cfg.TeamID,
		}
	}
	if cfg.TopicID != "" {
		count++
		r = route{
			kind:         destTopic,
			id:           cfg.TopicID,
			endpointPath: "postComments?$format=json",
			label:        "topic " + cfg.TopicID,
		}
	}

	if count != 1 {
		return route{}, &ConfigError{
			Reason: "exactly one of ryver.forum_id, ryver.team_id, ryver.topic_id must be set",
		}
	}
	return r, nil
}

// buildPayload produces the JSON-serializable request body for a route.
// Topic comments never carry sender metadata.
func buildPayload(r route, sender map[string]string, body string) any {
	if r.kind == destTopic {
		return map[string]any{
			"comment": body,
			"post":    map[string]any{"id": r.id},
		}
	}
	return map[string]any{
		"body":         body,
		"createSource": sender,
	}
}

// fitBody enforces the destination's maximum body size. Oversized bodies are
// cut at a raw byte offset and suffixed with the truncation marker, so the
// result is always at most maxBodySize bytes.
func fitBody(body string) string {
	if len(body) <= maxBodySize {
		return body
	}
	return body[:maxBodySize-len(truncationMarker)] + truncationMarker
}

// RyverNotifier posts alert batches to a Ryver topic, team or forum via the
// Ryver REST API. The routing decision is made once at construction; the
// notifier is immutable afterwards and safe for concurrent use.
type RyverNotifier struct {
	route     route
	fullURL   string
	authBasic string
	sender    map[string]string
	client    *http.Client
}

// NewRyverNotifier creates a new Ryver notifier. It fails with a *ConfigError
// when the destination identifiers are not mutually exclusive, before any
// network activity.
func NewRyverNotifier(cfg *config.RyverConfig) (*RyverNotifier, error) {
	r, err := resolveRoute(cfg)
	if err != nil {
		return nil, err
	}

	sender := map[string]string{}
	if cfg.Avatar != "" {
		sender["avatar"] = cfg.Avatar
	}
	if cfg.DisplayName != "" {
		sender["displayName"] = cfg.DisplayName
	}

	return &RyverNotifier{
		route:     r,
		fullURL:   fmt.Sprintf("https://%s.ryver.com/api/1/odata.svc/%s", cfg.Organization, r.endpointPath),
		authBasic: cfg.AuthBasic,
		sender:    sender,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns the notifier name.
func (n *RyverNotifier) Name() string {
	return "ryver"
}

// Info returns the operator-facing descriptor: the channel type and the
// resolved destination URL. The credential is never included.
func (n *RyverNotifier) Info() map[string]string {
	return map[string]string{
		"type": "ryver",
		"url":  n.fullURL,
	}
}

// Send renders the batch, fits the body, and issues a single POST to the
// resolved destination. There is one request per invocation and no retry.
func (n *RyverNotifier) Send(ctx context.Context, batch *model.MatchBatch) error {
	body := fitBody(render.Body(batch))
	payload := buildPayload(n.route, n.sender, body)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.fullURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+n.authBasic)

	resp, err := n.client.Do(req)
	if err != nil {
		return &TransportError{URL: n.fullURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        n.fullURL,
		}
		if resp.StatusCode == http.StatusBadRequest {
			if details, ok := parseErrorDetails(resp.Body); ok {
				apiErr.Details = details
			}
		}
		return apiErr
	}

	log.Printf("Alert sent to Ryver %s", n.route.label)
	return nil
}

// ryverErrorBody is the shape Ryver uses for structured 400 responses.
type ryverErrorBody struct {
	Error struct {
		Details []struct {
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

// parseErrorDetails attempts to extract human-readable messages from a 400
// response body at error.details[*].message. It reports ok=false when the
// body does not parse or does not match the expected shape; the caller then
// falls back to the generic status error.
func parseErrorDetails(r io.Reader) ([]string, bool) {
	var body ryverErrorBody
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return nil, false
	}

	var details []string
	for _, d := range body.Error.Details {
		if d.Message != "" {
			details = append(details, d.Message)
		}
	}
	if len(details) == 0 {
		return nil, false
	}
	return details, true
}
