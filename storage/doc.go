// Package storage provides object storage with pluggable backends, used to
// read and write record files.
//
// # Backends
//
//   - storage/local: local filesystem
//   - storage/s3: Amazon S3 and S3-compatible storage
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  bucket: "demand"
//	  region: "us-east-1"
package storage
