package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

// maxLibrarySize bounds a downloaded library.
const maxLibrarySize = 32 << 20

const libraryContentType = "application/yaml"

// FetchLibrary downloads and decodes the configured library object.
func (c *Client) FetchLibrary(ctx context.Context) ([]*monomer.Monomer, error) {
	rc, err := c.api.GetObject(ctx, c.cfg.Bucket, c.cfg.LibraryObject)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to fetch monomer library").
			WithDetailf("bucket=%s object=%s", c.cfg.Bucket, c.cfg.LibraryObject)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxLibrarySize+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to read monomer library")
	}
	if len(data) > maxLibrarySize {
		return nil, errors.New(errors.ErrCodeLibraryInvalid, "monomer library object is too large").
			WithDetailf("object=%s", c.cfg.LibraryObject)
	}
	return monomer.ParseLibrary(data)
}

// LoadInto merges the library object into store.  A missing object loads
// nothing, so a fresh bucket does not block startup.
func (c *Client) LoadInto(ctx context.Context, store *monomer.MemoryStore) (int, error) {
	monomers, err := c.FetchLibrary(ctx)
	if errors.IsCode(err, errors.ErrCodeNotFound) {
		c.logger.Warn("Monomer library object not found",
			logging.String("bucket", c.cfg.Bucket),
			logging.String("object", c.cfg.LibraryObject))
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := store.Merge(monomers); err != nil {
		return 0, err
	}
	c.logger.Info("Monomer library loaded from object store",
		logging.String("bucket", c.cfg.Bucket),
		logging.String("object", c.cfg.LibraryObject),
		logging.Int("monomers", len(monomers)))
	return len(monomers), nil
}

// PublishLibrary encodes monomers and uploads them as the library object,
// creating the bucket if needed.
func (c *Client) PublishLibrary(ctx context.Context, monomers []*monomer.Monomer) error {
	data, err := monomer.EncodeLibrary(monomers)
	if err != nil {
		return err
	}
	if err := c.EnsureBucket(ctx); err != nil {
		return err
	}
	if err := c.api.PutObject(ctx, c.cfg.Bucket, c.cfg.LibraryObject, bytes.NewReader(data), int64(len(data)), libraryContentType); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to upload monomer library").
			WithDetailf("bucket=%s object=%s", c.cfg.Bucket, c.cfg.LibraryObject)
	}
	c.logger.Info("Monomer library published",
		logging.String("bucket", c.cfg.Bucket),
		logging.String("object", c.cfg.LibraryObject),
		logging.Int("monomers", len(monomers)))
	return nil
}
