package host

import (
	"context"
	"fmt"
	"log"
	"os"
)

// DocumentClient opens and closes model documents around processing. The
// default implementation only verifies the file exists; the host
// application owns the actual document lifecycle.
type DocumentClient struct{}

// NewDocumentClient creates a DocumentClient.
func NewDocumentClient() *DocumentClient {
	return &DocumentClient{}
}

// Open verifies path is readable. A missing file surfaces fs.ErrNotExist
// so callers can classify the outcome.
func (c *DocumentClient) Open(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	f.Close()
	log.Printf("host: opened %s", path)
	return nil
}

// Close releases the document. The default client has nothing to release.
func (c *DocumentClient) Close(ctx context.Context, path string) error {
	log.Printf("host: closed %s", path)
	return nil
}
