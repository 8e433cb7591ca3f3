// Package registry wraps the registry document collaborator. Upstream
// returns heterogeneous payload shapes depending on whether the document was
// issued through the government channel or parsed from a user upload;
// extraction is a declarative, priority-ordered list of (predicate,
// extractor) pairs evaluated once, with the chosen source recorded so a
// low-confidence parse can be traced to the payload shape that produced it.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/doldari/api/internal/models"
)

// ParseOutcome is the result of running one extractor against a payload.
type ParseOutcome struct {
	Registry   *models.RegistryData
	Confidence float64
	Method     string
}

// Source obtains parsed registry data for an artifact's file reference.
type Source interface {
	Parse(ctx context.Context, fileRef string) (*ParseOutcome, error)
}

// Client is the HTTP implementation of Source.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a registry source client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// rawPayload is the upstream response before extraction. Issued documents
// carry a structured `registry` object; upload parses carry an `ocr` block
// with its own confidence; legacy responses inline the fields at top level.
type rawPayload struct {
	Registry   *models.RegistryData `json:"registry,omitempty"`
	Confidence *float64             `json:"confidence,omitempty"`
	OCR        *ocrBlock            `json:"ocr,omitempty"`
	Owners     []models.Owner       `json:"owners,omitempty"`
	Liens      []models.Lien        `json:"liens,omitempty"`
}

type ocrBlock struct {
	Registry   models.RegistryData `json:"registry"`
	Confidence float64             `json:"confidence"`
}

// extractor tries one payload shape. Extractors are evaluated in priority
// order and the first whose predicate matches wins.
type extractor struct {
	method    string
	matches   func(p *rawPayload) bool
	take      func(p *rawPayload) *models.RegistryData
	confident func(p *rawPayload) float64
}

// Issued-channel confidence is fixed high: the data is structured at the
// source, not recognized from an image.
const issuedConfidence = 0.99

var extractors = []extractor{
	{
		method:    "issued_structured",
		matches:   func(p *rawPayload) bool { return p.Registry != nil },
		take:      func(p *rawPayload) *models.RegistryData { return p.Registry },
		confident: func(p *rawPayload) float64 {
			if p.Confidence != nil {
				return *p.Confidence
			}
			return issuedConfidence
		},
	},
	{
		method:    "upload_ocr",
		matches:   func(p *rawPayload) bool { return p.OCR != nil },
		take:      func(p *rawPayload) *models.RegistryData { return &p.OCR.Registry },
		confident: func(p *rawPayload) float64 { return p.OCR.Confidence },
	},
	{
		method:  "legacy_inline",
		matches: func(p *rawPayload) bool { return len(p.Owners) > 0 || len(p.Liens) > 0 },
		take: func(p *rawPayload) *models.RegistryData {
			return &models.RegistryData{Owners: p.Owners, Liens: p.Liens}
		},
		confident: func(p *rawPayload) float64 {
			if p.Confidence != nil {
				return *p.Confidence
			}
			return 0.5
		},
	},
}

// Parse fetches the upstream payload for the file reference and runs the
// extractor list against it.
func (c *Client) Parse(ctx context.Context, fileRef string) (*ParseOutcome, error) {
	endpoint := fmt.Sprintf("%s/v1/registry/parse", c.baseURL)
	body, err := json.Marshal(map[string]string{"file_ref": fileRef})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry parse request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry source returned status %d", resp.StatusCode)
	}

	var payload rawPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode registry payload: %w", err)
	}
	return extract(&payload)
}

// extract runs the priority-ordered extractor list against a payload.
func extract(payload *rawPayload) (*ParseOutcome, error) {
	for _, ex := range extractors {
		if !ex.matches(payload) {
			continue
		}
		return &ParseOutcome{
			Registry:   ex.take(payload),
			Confidence: clampConfidence(ex.confident(payload)),
			Method:     ex.method,
		}, nil
	}
	return nil, fmt.Errorf("registry payload matched no known shape")
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
