// Package netx talks to the object store directly through presigned
// capabilities, bypassing the API server: the CLI and the Go client put
// file bytes to the URL an upload request returned.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of a rejection body is kept for the error.
const maxErrorBody = 4096

// CapabilityError is a non-200 answer of the object store to a presigned
// request.
type CapabilityError struct {
	Status int
	Body   string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("upload failed: %d %s; body: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// Rejected reports whether the store refused the capability itself, which
// happens once it expired or when the content type differs from the signed
// one. A new capability has to be requested.
func (e *CapabilityError) Rejected() bool {
	return e.Status == http.StatusForbidden
}

// PutPresigned uploads data to a presigned PUT URL. contentType must be the
// one the URL was signed for.
func PutPresigned(ctx context.Context, client *http.Client, url, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &CapabilityError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
	}
	return nil
}
