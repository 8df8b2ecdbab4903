package larkapi

import (
	"context"
	"net/url"
)

// BoundClient wraps a Client with a fixed bearer credential so callers can
// issue requests as one identity without threading the token everywhere.
type BoundClient struct {
	api    *Client
	bearer string
}

// WithBearer returns a client bound to the given bearer token.
func (c *Client) WithBearer(token string) *BoundClient {
	return &BoundClient{api: c, bearer: token}
}

// Get issues a GET with the bound credential.
func (b *BoundClient) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return b.api.Get(ctx, b.bearer, path, query)
}

// Post issues a POST with the bound credential.
func (b *BoundClient) Post(ctx context.Context, path string, body any) (*Response, error) {
	return b.api.Post(ctx, b.bearer, path, body)
}

// Do issues an arbitrary request with the bound credential.
func (b *BoundClient) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	return b.api.Do(ctx, method, path, b.bearer, query, body)
}
