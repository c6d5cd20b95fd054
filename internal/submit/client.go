package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/careerboost/interviewlab/internal/model"
)

// AnalysisClient uploads segments to the interview analysis service. Audio
// and video recordings go to distinct endpoints; the form field names are
// fixed by the service contract.
type AnalysisClient struct {
	client   *resty.Client
	audioURL string
	videoURL string
}

// NewAnalysisClient creates a client for the given endpoint URLs.
func NewAnalysisClient(audioURL, videoURL string) *AnalysisClient {
	return &AnalysisClient{
		client:   resty.New(),
		audioURL: audioURL,
		videoURL: videoURL,
	}
}

// Upload sends one segment as a multipart form. Any 2xx response is success;
// the body is best-effort JSON and is returned when parseable (the service
// contract allows empty or unparsable bodies).
func (c *AnalysisClient) Upload(ctx context.Context, seg model.RecordingSegment, question string) ([]byte, error) {
	url := c.audioURL
	if seg.Kind == model.MediaVideo {
		url = c.videoURL
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("file", seg.FileName(), bytes.NewReader(seg.Data)).
		SetFormData(map[string]string{"question": question}).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", seg.FileName(), err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("upload %s: unexpected status %s", seg.FileName(), resp.Status())
	}

	body := resp.Body()
	if !json.Valid(body) {
		slog.Debug("analysis response not parseable, treating as success", "file", seg.FileName())
		return nil, nil
	}
	return body, nil
}
