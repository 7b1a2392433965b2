// Package githubhook dispatches a GitHub Actions workflow after a model
// version is promoted, so CI can redeploy the serving process. The core
// only emits the promotion event; this adapter is the external trigger.
package githubhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"model-promotion-service/internal/config"
	"model-promotion-service/internal/core/domain"
	ports "model-promotion-service/internal/core/ports/output"
)

type client struct {
	baseURL      string
	repoOwner    string
	repoName     string
	workflowFile string
	ref          string
	token        string
	httpClient   *http.Client
}

// NewClient creates a PromotionNotifier that fires a workflow_dispatch
// with the promoted version as input.
func NewClient(cfg *config.GithubHookConfig) ports.PromotionNotifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &client{
		baseURL:      cfg.APIBaseURL,
		repoOwner:    cfg.RepoOwner,
		repoName:     cfg.RepoName,
		workflowFile: cfg.WorkflowFile,
		ref:          cfg.Ref,
		token:        cfg.Token,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type dispatchRequest struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs"`
}

func (c *client) ModelPromoted(ctx context.Context, event domain.PromotionEvent) error {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		c.baseURL, c.repoOwner, c.repoName, c.workflowFile)

	body, err := json.Marshal(dispatchRequest{
		Ref: c.ref,
		Inputs: map[string]string{
			"model_version": strconv.Itoa(event.NewVersion),
		},
	})
	if err != nil {
		return fmt.Errorf("marshal dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("dispatch workflow: unexpected status %d: %s", resp.StatusCode, payload)
	}

	log.WithFields(log.Fields{
		"model":    event.ModelName,
		"version":  event.NewVersion,
		"workflow": c.workflowFile,
	}).Info("redeploy workflow dispatched")
	return nil
}
