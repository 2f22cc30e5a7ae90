package webim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/webim-client/internal/ports"
)

const maxResponseBytes = 8 << 20

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// DefaultRequestTimeout covers a full long-poll round trip.
const DefaultRequestTimeout = 90 * time.Second

var _ ports.Transport = Transport{}

// Transport sends chat requests over HTTP.
type Transport struct {
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	UserAgent      string
}

func (t Transport) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	target, err := requestURL(req)
	if err != nil {
		return ports.Response{}, err
	}

	body, contentType, err := requestBody(req)
	if err != nil {
		return ports.Response{}, err
	}

	requestCtx, cancel := t.requestContext(ctx)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(requestCtx, req.Method, target, body)
	if err != nil {
		return ports.Response{}, fmt.Errorf("create %s request: %w", req.Method, err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if t.UserAgent != "" {
		httpReq.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := t.httpClient().Do(httpReq)
	if err != nil {
		return ports.Response{}, fmt.Errorf("request %s: %w", httpReq.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.Response{}, fmt.Errorf("read %s response: %w", httpReq.URL.Path, err)
	}
	return ports.Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func (t Transport) httpClient() *http.Client {
	if t.HTTPClient != nil {
		return t.HTTPClient
	}
	return http.DefaultClient
}

func (t Transport) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := t.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func requestURL(req ports.Request) (string, error) {
	if req.URL == "" {
		return "", errors.New("request url is required")
	}
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return "", fmt.Errorf("parse request url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("request url must use http or https")
	}
	if len(req.Query) > 0 {
		query := parsed.Query()
		for key, values := range req.Query {
			query[key] = values
		}
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

func requestBody(req ports.Request) (io.Reader, string, error) {
	if req.File != nil {
		return multipartBody(req.Form, req.File)
	}
	if len(req.Form) > 0 {
		return strings.NewReader(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	}
	return nil, "", nil
}

func multipartBody(fields url.Values, file *ports.FileUpload) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, value := range values {
			if err := writer.WriteField(key, value); err != nil {
				return nil, "", fmt.Errorf("write form field %s: %w", key, err)
			}
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.FieldName), quoteEscaper.Replace(file.Filename)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
