package world

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chunk-mender/core/storage"

	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/errgroup"
)

// downloadWorkers bounds concurrent object downloads.
const downloadWorkers = 4

// OpenRemote downloads the world stored under prefix in bucket into a
// temporary directory and opens the selected dimension read-only. Closing the
// dimension removes the download.
func OpenRemote(ctx context.Context, client storage.Client, bucket, prefix string, sel Selector) (*Dimension, error) {
	name := "s3://" + bucket
	if prefix != "" {
		name += "/" + prefix
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: bucket %s does not exist", ErrNotFound, bucket)
	}

	dir, err := os.MkdirTemp("", "chunk-mender-backup-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(dir) }

	if err := download(ctx, client, bucket, prefix, dir); err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}

	level, err := Open(dir, OpenOptions{ReadOnly: true})
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	level.name = name
	level.cleanup = cleanup

	dim, err := level.Dimension(sel)
	if err != nil {
		_ = level.Close()
		return nil, err
	}
	return dim, nil
}

func download(ctx context.Context, client storage.Client, bucket, prefix, dir string) error {
	listPrefix := prefix
	if listPrefix != "" {
		listPrefix += "/"
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadWorkers)

	for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: listPrefix, Recursive: true}) {
		if obj.Err != nil {
			cancel()
			_ = g.Wait()
			return fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, listPrefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		if !filepath.IsLocal(rel) {
			cancel()
			_ = g.Wait()
			return fmt.Errorf("object %s escapes the backup directory", obj.Key)
		}

		key, target := obj.Key, filepath.Join(dir, filepath.FromSlash(rel))
		g.Go(func() error {
			return fetchObject(gctx, client, bucket, key, target)
		})
	}
	return g.Wait()
}

func fetchObject(ctx context.Context, client storage.Client, bucket, key, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer obj.Close()

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, obj); err != nil {
		f.Close()
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	return f.Close()
}
