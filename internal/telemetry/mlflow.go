package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MLflowClient is a minimal client for the MLflow REST 2.0 tracking
// API: experiment get-or-create, run lifecycle, params, metrics, tags
// and text artifacts. MLflow has no Go SDK, so the wire calls are made
// directly. Every method returns an error; the Telemetry wrapper is
// what makes them best-effort.
type MLflowClient struct {
	baseURL      string
	experimentID string
	client       *http.Client
}

// NewMLflowClient connects to the tracking server and resolves (or
// creates) the named experiment. An unreachable server is an error so
// the caller can disable tracking for the process lifetime.
func NewMLflowClient(trackingURI, experiment string, timeout time.Duration) (*MLflowClient, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &MLflowClient{
		baseURL: strings.TrimSuffix(trackingURI, "/"),
		client:  &http.Client{Timeout: timeout},
	}

	id, err := c.getOrCreateExperiment(experiment)
	if err != nil {
		return nil, fmt.Errorf("mlflow: resolve experiment %q: %w", experiment, err)
	}
	c.experimentID = id
	return c, nil
}

// ExperimentID returns the resolved experiment id
func (c *MLflowClient) ExperimentID() string {
	return c.experimentID
}

func (c *MLflowClient) getOrCreateExperiment(name string) (string, error) {
	var got struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	err := c.call(http.MethodGet,
		"/api/2.0/mlflow/experiments/get-by-name?experiment_name="+url.QueryEscape(name),
		nil, &got)
	if err == nil && got.Experiment.ExperimentID != "" {
		return got.Experiment.ExperimentID, nil
	}

	var created struct {
		ExperimentID string `json:"experiment_id"`
	}
	if err := c.call(http.MethodPost, "/api/2.0/mlflow/experiments/create",
		map[string]string{"name": name}, &created); err != nil {
		return "", err
	}
	return created.ExperimentID, nil
}

// CreateRun opens a run and returns its id
func (c *MLflowClient) CreateRun(runName string) (string, error) {
	var resp struct {
		Run struct {
			Info struct {
				RunID string `json:"run_id"`
			} `json:"info"`
		} `json:"run"`
	}
	err := c.call(http.MethodPost, "/api/2.0/mlflow/runs/create", map[string]interface{}{
		"experiment_id": c.experimentID,
		"run_name":      runName,
		"start_time":    time.Now().UnixMilli(),
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Run.Info.RunID == "" {
		return "", fmt.Errorf("mlflow: runs/create returned no run_id")
	}
	return resp.Run.Info.RunID, nil
}

// LogParam records a run parameter
func (c *MLflowClient) LogParam(runID, key, value string) error {
	return c.call(http.MethodPost, "/api/2.0/mlflow/runs/log-parameter", map[string]string{
		"run_id": runID, "key": key, "value": value,
	}, nil)
}

// LogMetric records a run metric
func (c *MLflowClient) LogMetric(runID, key string, value float64) error {
	return c.call(http.MethodPost, "/api/2.0/mlflow/runs/log-metric", map[string]interface{}{
		"run_id": runID, "key": key, "value": value, "timestamp": time.Now().UnixMilli(),
	}, nil)
}

// SetTag records a run tag
func (c *MLflowClient) SetTag(runID, key, value string) error {
	return c.call(http.MethodPost, "/api/2.0/mlflow/runs/set-tag", map[string]string{
		"run_id": runID, "key": key, "value": value,
	}, nil)
}

// LogText uploads a text artifact for the run via the mlflow-artifacts
// API (requires the server to be started with --serve-artifacts).
func (c *MLflowClient) LogText(runID, name, content string) error {
	path := fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s/%s/artifacts/%s",
		c.baseURL, c.experimentID, runID, url.PathEscape(name))

	req, err := http.NewRequest(http.MethodPut, path, strings.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mlflow: artifact upload returned HTTP %d", resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// TerminateRun closes a run with the given status ("FINISHED"/"FAILED")
func (c *MLflowClient) TerminateRun(runID, status string) error {
	return c.call(http.MethodPost, "/api/2.0/mlflow/runs/update", map[string]interface{}{
		"run_id": runID, "status": status, "end_time": time.Now().UnixMilli(),
	}, nil)
}

// call performs one JSON request against the tracking API
func (c *MLflowClient) call(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mlflow: %s returned HTTP %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}
