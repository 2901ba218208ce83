// Package storage provides read access to object storage holding world backups.
//
// It wraps the MinIO Go client behind a small Client interface so that backups
// can live in AWS S3 or a self-hosted MinIO instance and be mocked in tests
// (see core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the backup bucket.
//   - ListObjects: Lists the files of a backup (prefix, recursive).
//   - GetObject: Retrieves a file as a stream.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	bucket, prefix, ok := storage.ParseURL("s3://backups/worlds/survival")
package storage
