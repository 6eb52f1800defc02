package limits

// Size limits for the status API

const (
	// JSON bounds status API responses read by the CLI (1MB)
	JSON = 1 << 20

	// ErrorBody is the maximum size for error response bodies (1KB)
	// Used when parsing error messages from failed API calls
	ErrorBody = 1024
)
