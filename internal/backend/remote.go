package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tintworks/tintcore/internal/fleet"
	"github.com/tintworks/tintcore/internal/infrastructure/logging"
)

// maxErrorBody caps how much of an upstream error response gets read
// for logging.
const maxErrorBody = 4096

// Remote drives panels through the vendor cloud API. The vendor is the
// authority for dwell enforcement in this mode: a 429 from upstream is
// surfaced as StatusBlocked, and local state is only a mirror of
// accepted changes.
type Remote struct {
	store     *fleet.Store
	client    *http.Client
	logger    *logging.Logger
	publisher Publisher
	baseURL   string
	apiKey    string
	siteID    string
}

// RemoteOptions configures the vendor adapter.
type RemoteOptions struct {
	URL       string
	APIKey    string
	SiteID    string
	Timeout   time.Duration
	Publisher Publisher // may be nil
}

// NewRemote creates a vendor cloud backend.
func NewRemote(store *fleet.Store, logger *logging.Logger, opts RemoteOptions) *Remote {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		store:     store,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With("component", "backend", "mode", ModeReal),
		publisher: opts.Publisher,
		baseURL:   opts.URL,
		apiKey:    opts.APIKey,
		siteID:    opts.SiteID,
	}
}

// tintRequest is the vendor API payload for a tint command.
type tintRequest struct {
	Level int `json:"level"`
}

// Apply forwards the transition to the vendor API and mirrors accepted
// changes into the local store.
func (r *Remote) Apply(ctx context.Context, panelID string, level int) (Status, error) {
	if !fleet.ValidLevel(level) {
		return StatusBlocked, fleet.ErrInvalidLevel
	}
	if _, err := r.store.GetPanel(panelID); err != nil {
		return StatusBlocked, err
	}

	body, err := json.Marshal(tintRequest{Level: level})
	if err != nil {
		return StatusBlocked, &Error{Op: "apply", Err: err}
	}

	url := fmt.Sprintf("%s/sites/%s/panels/%s/tint", r.baseURL, r.siteID, panelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return StatusBlocked, &Error{Op: "apply", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return StatusBlocked, &Error{Op: "apply", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		// Mirror the accepted change so local reads and the dwell
		// timestamp track what the vendor confirmed.
		if err := r.store.CommitState(ctx, panelID, level, time.Now().Unix()); err != nil {
			r.logger.Error("failed to mirror accepted transition",
				"panel_id", panelID,
				"error", err,
			)
		} else if r.publisher != nil {
			r.publisher.PanelChanged(panelID, level)
		}
		return StatusApplied, nil

	case resp.StatusCode == http.StatusNotFound:
		return StatusBlocked, fleet.ErrPanelNotFound

	case resp.StatusCode == http.StatusTooManyRequests:
		r.logger.Debug("vendor dwell gate blocked transition", "panel_id", panelID)
		return StatusBlocked, nil

	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return StatusBlocked, &Error{
			Op:     "apply",
			Status: resp.StatusCode,
			Err:    errors.New(string(bytes.TrimSpace(detail))),
		}
	}
}

// tintGroupResponse is the vendor API body for a group tint command.
type tintGroupResponse struct {
	Applied []string `json:"applied"`
}

// ApplyGroup forwards a group transition as a single vendor call and
// mirrors the applied subset into the local store. The vendor decides
// per member which panels clear their dwell window.
func (r *Remote) ApplyGroup(ctx context.Context, groupID string, level int) ([]string, error) {
	if !fleet.ValidLevel(level) {
		return nil, fleet.ErrInvalidLevel
	}
	if _, err := r.store.GetGroup(groupID); err != nil {
		return nil, err
	}

	body, err := json.Marshal(tintRequest{Level: level})
	if err != nil {
		return nil, &Error{Op: "apply_group", Err: err}
	}

	url := fmt.Sprintf("%s/sites/%s/groups/%s/tint", r.baseURL, r.siteID, groupID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Op: "apply_group", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &Error{Op: "apply_group", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		var payload tintGroupResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, &Error{Op: "apply_group", Err: err}
		}
		now := time.Now().Unix()
		for _, panelID := range payload.Applied {
			if err := r.store.CommitState(ctx, panelID, level, now); err != nil {
				r.logger.Error("failed to mirror accepted transition",
					"panel_id", panelID,
					"error", err,
				)
				continue
			}
			if r.publisher != nil {
				r.publisher.PanelChanged(panelID, level)
			}
		}
		return payload.Applied, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, fleet.ErrGroupNotFound

	case resp.StatusCode == http.StatusTooManyRequests:
		// Every member still inside its dwell window.
		r.logger.Debug("vendor dwell gate blocked group", "group_id", groupID)
		return []string{}, nil

	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Op:     "apply_group",
			Status: resp.StatusCode,
			Err:    errors.New(string(bytes.TrimSpace(detail))),
		}
	}
}

// Mode identifies this backend.
func (r *Remote) Mode() string {
	return ModeReal
}

// Close releases HTTP resources.
func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
