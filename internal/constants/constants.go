// Package constants provides shared constants used across the codebase.
package constants

// Upload limits
const (
	// MaxUploadSize is the maximum size of a multipart request held in memory
	MaxUploadSize = 32 << 20

	// MaxBatchImages is the maximum number of images accepted by one batch enrollment
	MaxBatchImages = 100
)

// Web server defaults
const (
	DefaultWebPort = 8080
	DefaultWebHost = "0.0.0.0"
)
