/*
Package blob uploads images to an external media service.

PURPOSE:
  Implements ledger.BlobStore against an unsigned-upload HTTP endpoint
  (Cloudinary-style): POST a multipart form with the file, an upload
  preset, and a folder, and read the hosted URL out of the JSON reply.

URL PASSTHROUGH:
  References that already carry a hosted URL are returned unchanged.
  Only refs with a local file path trigger an upload.

SEE ALSO:
  - ledger/store.go: BlobStore interface
  - ledger/store/memory.go: In-memory BlobStore for tests
*/
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fintrack/wallet-engine/ledger"
)

// Uploader posts images to an unsigned upload endpoint.
type Uploader struct {
	endpoint string
	preset   string
	client   *http.Client
}

// NewUploader creates an Uploader for the given endpoint and preset.
func NewUploader(endpoint, preset string) *Uploader {
	return &Uploader{
		endpoint: endpoint,
		preset:   preset,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends the referenced local file to the media service and returns
// its hosted URL. An already-hosted ref passes through untouched.
func (u *Uploader) Upload(ctx context.Context, ref ledger.ImageRef, folder string) (string, error) {
	if ref.URL != "" {
		return ref.URL, nil
	}
	if ref.LocalURI == "" {
		return "", nil
	}

	file, err := os.Open(ref.LocalURI)
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", ref.LocalURI, err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(ref.LocalURI))
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", ref.LocalURI, err)
	}
	if err := form.WriteField("upload_preset", u.preset); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.WriteField("folder", folder); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("upload rejected: %s", msg)
	}
	if parsed.SecureURL == "" {
		return "", fmt.Errorf("upload response missing secure_url")
	}
	return parsed.SecureURL, nil
}
