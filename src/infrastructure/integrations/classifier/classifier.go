package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"afvalalert/src/infrastructure/classification"
)

// Service calls the external image classification endpoint. One multipart
// request per image, no retry and no timeout beyond the transport default;
// a failed call fails the enclosing job.
type Service struct {
	endpoint string
	client   *http.Client
}

func NewService(endpoint string, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{}
	}

	return &Service{
		endpoint: endpoint,
		client:   client,
	}
}

func (s *Service) Classify(ctx context.Context, image []byte) ([]classification.Result, error) {
	var requestBody bytes.Buffer
	multipartWriter := multipart.NewWriter(&requestBody)

	fileWriter, err := multipartWriter.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %v", err)
	}

	if _, err = io.Copy(fileWriter, bytes.NewReader(image)); err != nil {
		return nil, fmt.Errorf("failed to write image content: %v", err)
	}

	multipartWriter.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", multipartWriter.FormDataContentType())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classification service error: %s: %s", resp.Status, string(body))
	}

	var results []classification.Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to parse response: %v", err)
	}

	return results, nil
}
