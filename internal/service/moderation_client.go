package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wot-api/pkg/logger"
)

// ModerationError means the external classifier rejected one or both
// images. Nothing was persisted, so callers must not attempt storage
// cleanup for this error.
type ModerationError struct {
	RejectedImage string // "A" | "B" | "both"
	UserMessage   string
}

func (e *ModerationError) Error() string {
	return fmt.Sprintf("moderation rejected image %s: %s", e.RejectedImage, e.UserMessage)
}

// ModerationClient calls the moderate-and-upload function: both images go
// up in one request, get classified, and are only written to storage when
// both pass. The classifier itself is opaque; this client depends only on
// the tri-state contract (success / moderation-rejected / failure).
type ModerationClient struct {
	endpoint   string
	anonKey    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewModerationClient creates the moderation client.
func NewModerationClient(endpoint, anonKey string, logger *logger.Logger) *ModerationClient {
	return &ModerationClient{
		endpoint: endpoint,
		anonKey:  anonKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type moderationRequest struct {
	ImageA string `json:"imageA"`
	ImageB string `json:"imageB"`
	PollID string `json:"pollId"`
}

type moderationResponse struct {
	Success       bool   `json:"success"`
	ImageAURL     string `json:"imageAUrl"`
	ImageBURL     string `json:"imageBUrl"`
	Error         string `json:"error"`
	RejectedImage string `json:"rejectedImage"`
	Message       string `json:"message"`
}

// ModerateAndUpload submits both base64 images with a correlation id and
// returns their public URLs, a *ModerationError on rejection, or a generic
// error on transport/endpoint failure.
func (c *ModerationClient) ModerateAndUpload(ctx context.Context, imageA, imageB, folderID string) (string, string, error) {
	payload, err := json.Marshal(moderationRequest{ImageA: imageA, ImageB: imageB, PollID: folderID})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal moderation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", "", fmt.Errorf("failed to create moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to call moderation endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read moderation response: %w", err)
	}

	var parsed moderationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.WithField("status", resp.StatusCode).Error("Unparseable moderation response")
		return "", "", fmt.Errorf("failed to parse moderation response: %w", err)
	}

	if !parsed.Success {
		if parsed.Error == "MODERATION_REJECTED" {
			message := parsed.Message
			if message == "" {
				message = "Image contains content that violates our community guidelines"
			}
			return "", "", &ModerationError{RejectedImage: parsed.RejectedImage, UserMessage: message}
		}
		return "", "", fmt.Errorf("moderation endpoint failed: %s", parsed.Message)
	}

	return parsed.ImageAURL, parsed.ImageBURL, nil
}
