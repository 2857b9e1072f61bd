// Package quantum is the HTTP client for the quantum execution gateway that
// builds folding Hamiltonians, runs VQE jobs on the selected backend, samples
// ansatz distributions and decodes them into lattice conformations.
package quantum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/example/qfold/internal/config"
	"github.com/example/qfold/internal/observability"
)

var ErrJobFailed = errors.New("vqe job failed")

type Client struct {
	baseURL      string
	channel      string
	instance     string
	token        string
	retries      int
	pollInterval time.Duration
	httpClient   *http.Client
}

func New(cfg config.Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.QuantumBaseURL, "/"),
		channel:      strings.TrimSpace(cfg.QuantumChannel),
		instance:     strings.TrimSpace(cfg.QuantumInstance),
		token:        strings.TrimSpace(cfg.QuantumToken),
		retries:      cfg.HTTPRetries,
		pollInterval: poll,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) BuildProblem(ctx context.Context, req ProblemRequest) (Problem, error) {
	var p Problem
	if err := c.doJSON(ctx, http.MethodPost, "/v1/problems", req, &p, false); err != nil {
		return Problem{}, fmt.Errorf("build problem: %w", err)
	}
	if p.ID == "" || p.NumQubits <= 0 {
		return Problem{}, fmt.Errorf("build problem: invalid response id=%q num_qubits=%d", p.ID, p.NumQubits)
	}
	return p, nil
}

// Solve submits a VQE job and polls it until it completes, fails or ctx is
// done.
func (c *Client) Solve(ctx context.Context, req VQERequest) (VQEResult, error) {
	ctx, span := observability.StartSpan(ctx, "quantum.solve",
		attribute.String("problem.id", req.ProblemID),
		attribute.Int("vqe.min_qubits", req.MinQubits),
		attribute.Int("vqe.max_iter", req.MaxIter),
	)
	res, err := c.solve(ctx, req)
	observability.EndSpan(span, err)
	return res, err
}

func (c *Client) solve(ctx context.Context, req VQERequest) (VQEResult, error) {
	var sub submitResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/vqe/jobs", req, &sub, false); err != nil {
		return VQEResult{}, fmt.Errorf("submit vqe job: %w", err)
	}
	if sub.JobID == "" {
		return VQEResult{}, errors.New("submit vqe job: empty job id")
	}
	log.Printf("vqe job submitted job=%s problem=%s", sub.JobID, req.ProblemID)

	t := time.NewTicker(c.pollInterval)
	defer t.Stop()
	last := ""
	for {
		st, err := c.JobStatus(ctx, sub.JobID)
		if err != nil {
			return VQEResult{}, err
		}
		if st.Status != last {
			log.Printf("vqe job status job=%s status=%s", sub.JobID, st.Status)
			last = st.Status
		}
		switch st.Status {
		case JobCompleted:
			if st.Result == nil {
				return VQEResult{}, fmt.Errorf("vqe job %s completed without result", sub.JobID)
			}
			return *st.Result, nil
		case JobFailed:
			return VQEResult{}, fmt.Errorf("%w: job %s: %s", ErrJobFailed, sub.JobID, st.Error)
		}
		select {
		case <-ctx.Done():
			return VQEResult{}, ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var st JobStatus
	if err := c.doJSON(ctx, http.MethodGet, "/v1/vqe/jobs/"+url.PathEscape(jobID), nil, &st, true); err != nil {
		return JobStatus{}, fmt.Errorf("poll vqe job %s: %w", jobID, err)
	}
	st.Status = strings.ToLower(strings.TrimSpace(st.Status))
	return st, nil
}

// Distribution samples the ansatz bound to params and returns the
// probability of each measured bitstring.
func (c *Client) Distribution(ctx context.Context, ansatzID string, numQubits int, params []float64) (Distribution, error) {
	var out distributionResponse
	path := "/v1/ansatz/" + url.PathEscape(ansatzID) + "/distribution"
	if err := c.doJSON(ctx, http.MethodPost, path, distributionRequest{NumQubits: numQubits, Parameters: params}, &out, true); err != nil {
		return nil, fmt.Errorf("probability distribution: %w", err)
	}
	if len(out.Distribution) == 0 {
		return nil, errors.New("probability distribution: empty response")
	}
	return out.Distribution, nil
}

// Interpret decodes the most probable conformation of d into coordinates.
func (c *Client) Interpret(ctx context.Context, problemID string, d Distribution) (Interpretation, error) {
	var out Interpretation
	path := "/v1/problems/" + url.PathEscape(problemID) + "/interpret"
	if err := c.doJSON(ctx, http.MethodPost, path, interpretRequest{Distribution: d}, &out, true); err != nil {
		return Interpretation{}, fmt.Errorf("interpret distribution: %w", err)
	}
	if len(out.Atoms) == 0 {
		return Interpretation{}, errors.New("interpret distribution: no atoms returned")
	}
	return out, nil
}

// doJSON retries transport errors and 5xx responses up to c.retries times
// for idempotent requests. Problem and job submits are sent once.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out any, idempotent bool) error {
	attempts := 1
	if idempotent && c.retries > 0 {
		attempts += c.retries
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			sleep := time.Duration(i*250) * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}
		lastErr = c.doJSONOnce(ctx, method, path, reqBody, out)
		if lastErr == nil {
			return nil
		}
		var se *statusError
		if errors.As(lastErr, &se) && se.code < 500 {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doJSONOnce(ctx context.Context, method, path string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.channel != "" {
		req.Header.Set("X-Quantum-Channel", c.channel)
	}
	if c.instance != "" {
		req.Header.Set("X-Quantum-Instance", c.instance)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusError{code: resp.StatusCode, status: resp.Status, body: strings.TrimSpace(string(msg))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type statusError struct {
	code   int
	status string
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return "quantum service request failed: " + e.status
	}
	return "quantum service request failed: " + e.status + " " + e.body
}
