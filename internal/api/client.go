// Package api is the client for the print-farm backend. Every response uses
// one envelope, {"data": ..., "error": {"code", "message"}}, and anything
// else is rejected.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/philipparndt/printquote/pkg/pricing"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 16 << 20
	slicerPath      = "/api/v1/slicer/estimate"
)

// Config holds the backend connection settings
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the backend REST API. It does not retry.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient constructs an API client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitOrder creates an order and returns its id
func (c *Client) SubmitOrder(ctx context.Context, payload OrderPayload) (OrderID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	var created orderCreated
	if err := c.do(ctx, http.MethodPost, entityPaths[KindOrders], bytes.NewReader(body), "application/json", &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: order response without id", ErrShapeMismatch)
	}
	return OrderID(created.ID), nil
}

// FetchEntities lists a backend collection. The data member must be a JSON array.
func (c *Client) FetchEntities(ctx context.Context, kind EntityKind, filter Filter) ([]Entity, error) {
	path, ok := entityPaths[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var entities []Entity
	if err := c.do(ctx, http.MethodGet, path, nil, "", &entities); err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []Entity{}
	}
	return entities, nil
}

// ControlPrinter sends a command to the named printer
func (c *Client) ControlPrinter(ctx context.Context, name string, command PrinterCommand, params map[string]any) error {
	if !printerCommands[command] {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("api: printer name is required")
	}
	body, err := json.Marshal(printerControl{Command: command, Params: params})
	if err != nil {
		return err
	}
	path := entityPaths[KindPrinters] + "/" + url.PathEscape(name) + "/control"
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json", nil)
}

// GetSlicerEstimate uploads the model for slicing. It returns nil without an
// error when the slicer reports that it could not produce an estimate.
func (c *Client) GetSlicerEstimate(ctx context.Context, file []byte, filename string, settings SlicerSettings) (*pricing.SlicerEstimate, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(file); err != nil {
		return nil, err
	}
	fields := map[string]string{
		"layer_height":   strconv.FormatFloat(settings.LayerHeight, 'f', -1, 64),
		"infill_percent": strconv.Itoa(settings.InfillPercent),
		"wall_count":     strconv.Itoa(settings.WallCount),
		"material":       settings.Material,
		"supports":       strconv.FormatBool(settings.Supports),
		"brim":           strconv.FormatBool(settings.Brim),
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var resp slicerResponse
	if err := c.do(ctx, http.MethodPost, slicerPath, &buf, mw.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		c.logger.Debug("slicer returned no estimate", zap.String("file", filename), zap.String("reason", resp.Error))
		return nil, nil
	}

	source := pricing.SourceOrcaSlicer
	if strings.EqualFold(resp.Source, string(pricing.SourceBambuStudio)) {
		source = pricing.SourceBambuStudio
	}
	return &pricing.SlicerEstimate{
		Success:          true,
		FilamentUsedG:    resp.FilamentUsedG,
		PrintTimeSeconds: resp.PrintTimeSeconds,
		LayerCount:       resp.LayerCount,
		Source:           source,
	}, nil
}

// do performs one request and decodes the envelope's data member into out.
// A nil out accepts any data value, including null; otherwise null data is
// a shape mismatch.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("api: read response: %w", err)
	}

	env, decodeErr := decodeEnvelope(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return decodeErr
	}
	if env.Error != nil {
		return &APIError{Status: resp.StatusCode, Code: env.Error.Code, Message: env.Error.Message}
	}
	if env.Data == nil {
		return fmt.Errorf("%w: missing data", ErrShapeMismatch)
	}
	if out == nil {
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return fmt.Errorf("%w: null data", ErrShapeMismatch)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		if errors.Is(err, ErrShapeMismatch) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	return nil
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	return env, nil
}
