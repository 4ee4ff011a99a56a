package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

const ipfsTimeout = 30 * time.Second

// IPFSGateway stores content bodies and metadata documents on an IPFS
// node over its HTTP API.
type IPFSGateway struct {
	client   *http.Client
	endpoint string
	cache    *cache.Cache
}

func NewIPFSGateway(endpoint string) *IPFSGateway {
	return &IPFSGateway{
		client: &http.Client{
			Timeout: ipfsTimeout,
		},
		endpoint: endpoint,
		cache:    cache.New(10*time.Minute, 15*time.Minute),
	}
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Add uploads a blob and returns its content hash.
func (g *IPFSGateway) Add(ctx context.Context, data []byte, name string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", errors.Wrap(err, "multipart form setup failed")
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.Wrap(err, "multipart write failed")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "multipart close failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/v0/add", &body)
	if err != nil {
		return "", errors.Wrap(err, "ipfs add request setup failed")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "ipfs add request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipfs add returned status %d", resp.StatusCode)
	}

	var added addResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return "", errors.Wrap(err, "ipfs add response decode failed")
	}

	return added.Hash, nil
}

// AddJSON marshals the document and uploads it as a blob.
func (g *IPFSGateway) AddJSON(ctx context.Context, document any) (string, error) {
	data, err := json.Marshal(document)
	if err != nil {
		return "", errors.Wrap(err, "metadata marshal failed")
	}
	return g.Add(ctx, data, "metadata.json")
}

// Pin keeps the hash resident on the node.
func (g *IPFSGateway) Pin(ctx context.Context, hash string) error {
	target := g.endpoint + "/api/v0/pin/add?arg=" + url.QueryEscape(hash)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return errors.Wrap(err, "ipfs pin request setup failed")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "ipfs pin request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ipfs pin returned status %d", resp.StatusCode)
	}

	return nil
}

// Get fetches a JSON document by hash and unmarshals it into dest.
// Hashes are immutable so bodies are cached locally.
func (g *IPFSGateway) Get(ctx context.Context, hash string, dest any) error {
	if cached, found := g.cache.Get(hash); found {
		return json.Unmarshal(cached.([]byte), dest)
	}

	target := g.endpoint + "/api/v0/cat?arg=" + url.QueryEscape(hash)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return errors.Wrap(err, "ipfs cat request setup failed")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "ipfs cat request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ipfs cat returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "ipfs cat read failed")
	}

	g.cache.Set(hash, data, cache.DefaultExpiration)
	return json.Unmarshal(data, dest)
}
