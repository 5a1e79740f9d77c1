package imagery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/neexbeast/tripplanner/internal/webclient"
)

// PhotoSearcher finds one photo for a free-text query. It returns "" with a nil error
// when the service answered but had no match.
type PhotoSearcher interface {
	Name() string
	Search(ctx context.Context, query string) (string, error)
}

// ---- Pexels ----

// PexelsClient searches photos on Pexels.
type PexelsClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

const pexelsDefaultURL = "https://api.pexels.com/v1/search"

// NewPexelsClient constructs a PexelsClient with the given API key.
func NewPexelsClient(apiKey string) *PexelsClient {
	return &PexelsClient{apiKey: apiKey, baseURL: pexelsDefaultURL, client: webclient.New()}
}

// NewPexelsClientWithURL constructs a PexelsClient pointing at a custom base URL (for tests).
func NewPexelsClientWithURL(baseURL, apiKey string) *PexelsClient {
	return &PexelsClient{apiKey: apiKey, baseURL: baseURL, client: webclient.New()}
}

type pexelsResponse struct {
	Photos []struct {
		Src struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

func (c *PexelsClient) Name() string { return "pexels" }

// Search returns the large rendition of the best matching photo.
func (c *PexelsClient) Search(ctx context.Context, query string) (string, error) {
	endpoint := c.baseURL + "?query=" + url.QueryEscape(query) + "&per_page=1"
	header := http.Header{"Authorization": []string{c.apiKey}}

	var raw pexelsResponse
	if err := webclient.GetJSON(ctx, c.client, endpoint, header, &raw); err != nil {
		return "", fmt.Errorf("pexels search for %q: %w", query, err)
	}

	if len(raw.Photos) == 0 {
		return "", nil
	}
	return raw.Photos[0].Src.Large, nil
}

// ---- Pixabay ----

// PixabayClient searches photos on Pixabay.
type PixabayClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

const pixabayDefaultURL = "https://pixabay.com/api/"

// NewPixabayClient constructs a PixabayClient with the given API key.
func NewPixabayClient(apiKey string) *PixabayClient {
	return &PixabayClient{apiKey: apiKey, baseURL: pixabayDefaultURL, client: webclient.New()}
}

// NewPixabayClientWithURL constructs a PixabayClient pointing at a custom base URL (for tests).
func NewPixabayClientWithURL(baseURL, apiKey string) *PixabayClient {
	return &PixabayClient{apiKey: apiKey, baseURL: baseURL, client: webclient.New()}
}

type pixabayResponse struct {
	Hits []struct {
		LargeImageURL string `json:"largeImageURL"`
	} `json:"hits"`
}

func (c *PixabayClient) Name() string { return "pixabay" }

// Search returns the large image URL of the first hit.
func (c *PixabayClient) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", query)
	params.Set("image_type", "photo")
	params.Set("per_page", "3")

	var raw pixabayResponse
	if err := webclient.GetJSON(ctx, c.client, c.baseURL+"?"+params.Encode(), nil, &raw); err != nil {
		return "", fmt.Errorf("pixabay search for %q: %w", query, err)
	}

	if len(raw.Hits) == 0 {
		return "", nil
	}
	return raw.Hits[0].LargeImageURL, nil
}
