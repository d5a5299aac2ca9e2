package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"github.com/veldt-labs/papyrus/internal/domain"
	"github.com/veldt-labs/papyrus/internal/service"
)

// Client partitions documents through an unstructured-compatible HTTP
// API. Extracted figure payloads are stored in the blob store and
// referenced by key in the returned elements.
type Client struct {
	baseURL string
	http    *http.Client
	blobs   service.BlobStore
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg Config, blobs service.BlobStore) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		blobs:   blobs,
	}
}

// apiElement is the partition API's wire shape for one element.
type apiElement struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Metadata struct {
		PageNumber  int    `json:"page_number"`
		ImageBase64 string `json:"image_base64"`
		ImageMime   string `json:"image_mime_type"`
	} `json:"metadata"`
}

// Partition sends the document to the extraction service and maps the
// response onto raw elements. Image payloads are decoded and written to
// blob storage; the element carries the storage key instead of the
// bytes.
func (c *Client) Partition(ctx context.Context, doc *domain.Document, content []byte) ([]service.RawElement, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("files", doc.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}
	if err := writer.WriteField("extract_image_block_types", `["Image"]`); err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/general/v0/general", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, msg)
	}

	var elements []apiElement
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	return c.mapElements(ctx, doc, elements)
}

func (c *Client) mapElements(ctx context.Context, doc *domain.Document, elements []apiElement) ([]service.RawElement, error) {
	raw := make([]service.RawElement, 0, len(elements))
	figureIndex := 0

	for _, e := range elements {
		if e.Metadata.ImageBase64 != "" {
			payload, err := base64.StdEncoding.DecodeString(e.Metadata.ImageBase64)
			if err != nil {
				return nil, fmt.Errorf("failed to decode figure payload: %w", err)
			}

			mime := e.Metadata.ImageMime
			if mime == "" {
				mime = "image/jpeg"
			}
			key := path.Join("documents", doc.ID, "figures", fmt.Sprintf("fig-%d%s", figureIndex, extForMime(mime)))
			figureIndex++

			if err := c.blobs.Put(ctx, key, payload, mime); err != nil {
				return nil, fmt.Errorf("failed to store figure: %w", err)
			}

			raw = append(raw, service.RawElement{
				PageNumber: e.Metadata.PageNumber,
				Kind:       "Image",
				Content:    key,
			})
			continue
		}

		raw = append(raw, service.RawElement{
			PageNumber: e.Metadata.PageNumber,
			Kind:       e.Type,
			Content:    e.Text,
		})
	}

	return raw, nil
}

func extForMime(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	default:
		return ".jpg"
	}
}
