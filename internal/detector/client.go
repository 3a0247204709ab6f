package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"golang.org/x/time/rate"

	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/facematch"
)

const defaultDetectorURL = "http://localhost:8000"

// Client calls the face embedding server's /embed/face endpoint.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	debug   bool
}

// NewClient creates a detector client. A zero RPS disables rate limiting.
func NewClient(cfg *config.DetectorConfig) *Client {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		debug:   cfg.Debug,
	}
	if cfg.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return c
}

// faceDetection is a single face in the server response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  *float64  `json:"det_score"`
}

// faceResponse is the response of the face embedding endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// DetectFaces detects every face in the image and returns unit-length
// embeddings for them. When nothing is found in a very large image it retries
// on a downscaled copy, and failing that once more with boosted contrast.
// Boxes are always reported in the coordinates of the submitted image.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	faces, err := c.embedFaces(ctx, imageData)
	if err != nil || len(faces) > 0 {
		c.debugf("detect: faces=%d", len(faces))
		return faces, err
	}

	// Retries need the decoded image; formats only the server understands get no retry.
	img, err := decodeImage(imageData)
	if err != nil {
		c.debugf("detect: no faces and image not decodable locally: %v", err)
		return nil, nil
	}

	current, scale := img, 1.0
	if longestSide(img) > downscaleThreshold {
		small, factor := downscale(img, downscaleTarget)
		b := small.Bounds()
		c.debugf("detect: initial detect failed on %dx%d, retrying at %dx%d",
			img.Bounds().Dx(), img.Bounds().Dy(), b.Dx(), b.Dy())
		faces, err = c.embedImage(ctx, small)
		if err != nil {
			return nil, err
		}
		if len(faces) > 0 {
			return rescale(faces, factor), nil
		}
		current, scale = small, factor
	}

	faces, err = c.embedImage(ctx, boostContrast(current, contrastFactor))
	if err != nil {
		return nil, err
	}
	if len(faces) > 0 {
		c.debugf("detect: contrast boost succeeded, faces=%d", len(faces))
	}
	return rescale(faces, scale), nil
}

func (c *Client) embedImage(ctx context.Context, img image.Image) ([]Face, error) {
	data, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	return c.embedFaces(ctx, data)
}

func (c *Client) embedFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrDetectorUnavailable, err)
	}

	faces := make([]Face, 0, len(faceResp.Faces))
	for _, fd := range faceResp.Faces {
		faces = append(faces, Face{
			Box:         fd.BBox,
			Probability: fd.DetScore,
			Embedding:   normalize(fd.Embedding),
		})
	}
	if c.debug {
		probs := make([]float64, len(faces))
		for i := range faces {
			probs[i] = math.Round(faces[i].Prob()*10000) / 10000
		}
		c.debugf("embed: boxes=%d, probs=%v", len(faces), probs)
	}
	return faces, nil
}

// postMultipartImage posts the image as the "file" form field and returns the response body.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrDetectorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrDetectorUnavailable, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity, http.StatusBadRequest:
		return nil, fmt.Errorf("%w (status %d): %s", ErrUnsupportedImage, resp.StatusCode, string(body))
	default:
		return nil, fmt.Errorf("%w (status %d): %s", ErrDetectorUnavailable, resp.StatusCode, string(body))
	}
}

func (c *Client) debugf(format string, args ...any) {
	if c.debug {
		log.Printf("[FACE_DEBUG] "+format, args...)
	}
}

// normalize scales v to unit length. Zero vectors are returned unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func rescale(faces []Face, factor float64) []Face {
	if factor == 1 {
		return faces
	}
	for i := range faces {
		faces[i].Box = facematch.ScaleBox(faces[i].Box, factor)
	}
	return faces
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	switch {
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return "image/png"
	case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38:
		return "image/gif"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	case len(data) >= 12 && string(data[4:8]) == "ftyp":
		return "image/heic"
	}
	return "application/octet-stream"
}
