// Package storage abstracts the object store used for published plugin
// manifests and exported artifacts.
//
// # Backends
//
//   - storage/local: filesystem, the default for development
//   - storage/s3: Amazon S3 and S3-compatible services
//   - storage/memory: in-process map, used by tests
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  bucket: "flowtorch-plugins"
//	  region: "eu-west-1"
package storage
