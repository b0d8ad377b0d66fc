package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wot-api/pkg/logger"
)

// StorageClient talks to the object-storage API. The poll service only
// needs it for compensation: deleting a poll's image folder when the record
// insert fails after the images were already uploaded.
type StorageClient struct {
	baseURL    string
	bucket     string
	anonKey    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewStorageClient creates the storage client.
func NewStorageClient(baseURL, bucket, anonKey string, logger *logger.Logger) *StorageClient {
	return &StorageClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

type storageObject struct {
	Name string `json:"name"`
}

// DeleteFolder lists a poll's image folder and removes every object in it.
func (c *StorageClient) DeleteFolder(ctx context.Context, folderID string) error {
	objects, err := c.listFolder(ctx, folderID)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return nil
	}

	prefixes := make([]string, len(objects))
	for i, obj := range objects {
		prefixes[i] = folderID + "/" + obj.Name
	}

	payload, err := json.Marshal(map[string][]string{"prefixes": prefixes})
	if err != nil {
		return fmt.Errorf("failed to marshal delete request: %w", err)
	}

	url := fmt.Sprintf("%s/object/%s", c.baseURL, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete objects: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("storage delete returned status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.WithFields(map[string]interface{}{
		"folder":  folderID,
		"objects": len(prefixes),
	}).Info("Deleted orphaned poll images")
	return nil
}

func (c *StorageClient) listFolder(ctx context.Context, folderID string) ([]storageObject, error) {
	payload, err := json.Marshal(map[string]string{"prefix": folderID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal list request: %w", err)
	}

	url := fmt.Sprintf("%s/object/list/%s", c.baseURL, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read list response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("storage list returned status %d: %s", resp.StatusCode, string(body))
	}

	var objects []storageObject
	if err := json.Unmarshal(body, &objects); err != nil {
		return nil, fmt.Errorf("failed to parse list response: %w", err)
	}
	return objects, nil
}

func (c *StorageClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
		req.Header.Set("apikey", c.anonKey)
	}
}
