package ports

import (
	"context"
	"net/url"
)

// Request is a single call to the chat server. Query is appended to URL;
// Form and File make up the body.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Form   url.Values
	File   *FileUpload
}

type FileUpload struct {
	FieldName   string
	Filename    string
	ContentType string
	Data        []byte
}

type Response struct {
	StatusCode int
	Body       []byte
}

type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}
