// Package parse extracts structured elements from PDF documents through a
// hosted parsing service. Parsing is asynchronous on the service side: a job
// is created from an upload, polled to completion, and its JSON result is
// flattened into page-tagged elements.
package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/lectern-labs/lectern/internal/config"
	"github.com/lectern-labs/lectern/workflow"
)

// System parses PDF documents into retrievable elements.
type System interface {
	// Parse uploads the document and blocks until the parsing job completes.
	// Failures wrap workflow.ErrParseFailed.
	Parse(ctx context.Context, pdf io.Reader, name string) ([]workflow.Element, error)
}

type client struct {
	http         *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
}

// New creates a parsing system from the given configuration.
func New(cfg *config.ParserConfig, logger *slog.Logger) System {
	return &client{
		http:         &http.Client{Timeout: 60 * time.Second},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey(),
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		logger:       logger.With("system", "parse"),
	}
}

type job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error_message,omitempty"`
}

type result struct {
	Pages []struct {
		Page  int `json:"page"`
		Items []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"items"`
	} `json:"pages"`
}

func (c *client) Parse(ctx context.Context, pdf io.Reader, name string) ([]workflow.Element, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	j, err := c.upload(ctx, pdf, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", workflow.ErrParseFailed, err)
	}

	c.logger.Info("parsing job created", "job", j.ID, "document", name)

	if err := c.wait(ctx, j.ID); err != nil {
		return nil, fmt.Errorf("%w: %w", workflow.ErrParseFailed, err)
	}

	res, err := c.result(ctx, j.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", workflow.ErrParseFailed, err)
	}

	elements := flatten(res)
	c.logger.Info("parsing job complete",
		"job", j.ID,
		"pages", len(res.Pages),
		"elements", len(elements),
	)

	return elements, nil
}

func (c *client) upload(ctx context.Context, pdf io.Reader, name string) (*job, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.baseURL+"/api/v1/parsing/upload",
		&body,
	)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var j job
	if err := c.do(req, &j); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if j.ID == "" {
		return nil, errors.New("upload: empty job id")
	}

	return &j, nil
}

// wait polls the job until it reaches a terminal status.
func (c *client) wait(ctx context.Context, id string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(
			ctx, http.MethodGet,
			fmt.Sprintf("%s/api/v1/parsing/job/%s", c.baseURL, id),
			nil,
		)
		if err != nil {
			return fmt.Errorf("create status request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		var j job
		if err := c.do(req, &j); err != nil {
			return fmt.Errorf("poll job %s: %w", id, err)
		}

		switch j.Status {
		case "SUCCESS":
			return nil
		case "ERROR", "CANCELLED":
			return fmt.Errorf("job %s failed: %s", id, j.Error)
		}
	}
}

func (c *client) result(ctx context.Context, id string) (*result, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/parsing/job/%s/result/json", c.baseURL, id),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create result request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var res result
	if err := c.do(req, &res); err != nil {
		return nil, fmt.Errorf("fetch result %s: %w", id, err)
	}

	return &res, nil
}

func (c *client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// flatten converts the service's page/item structure into elements. Unknown
// item types degrade to text; a missing page number defaults to 1.
func flatten(res *result) []workflow.Element {
	var elements []workflow.Element

	for _, page := range res.Pages {
		number := page.Page
		if number < 1 {
			number = 1
		}

		for _, item := range page.Items {
			elements = append(elements, workflow.Element{
				Page: number,
				Kind: elementKind(item.Type),
				Text: item.Value,
			})
		}
	}

	return elements
}

func elementKind(itemType string) workflow.ElementKind {
	switch itemType {
	case "table":
		return workflow.ElementTable
	case "image":
		return workflow.ElementImage
	case "figure":
		return workflow.ElementFigure
	default:
		return workflow.ElementText
	}
}
