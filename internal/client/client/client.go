package client

import "context"

// Response is the part of an HTTP response the sync engine looks at.
type Response struct {
	Status int
	// ETag is the raw ETag header, quotes included.
	ETag string
	Body []byte
}

type Client interface {
	// GetSettings fetches settings of profile id. eTag, when not empty, is
	// sent quoted in If-None-Match.
	GetSettings(ctx context.Context, id, bearer, eTag string) (*Response, error)

	// PutSettings replaces settings of profile id. eTag is sent quoted in
	// If-None-Match.
	PutSettings(ctx context.Context, id, bearer, eTag string, body []byte) (*Response, error)

	// PostSettings creates settings for profile id. No credential is sent.
	PostSettings(ctx context.Context, id string, body []byte) (*Response, error)
}
