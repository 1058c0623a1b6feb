// Package transfer streams single IIIF images to disk with size
// discovery, retry, and rate limiter feedback.
//
// This package includes:
//   - A Transferrer that writes each image through a .part file renamed
//     into place only on full success
//   - Expected-size discovery: GET Content-Length, then a HEAD probe
//     when the server supports HEAD, then a dimension-based estimate
//   - A one-per-run server capability probe (HEAD support, jpeg vs jpg
//     format spelling)
//   - Retries paced by the shared rate limiter, which also receives
//     every response outcome
//
// Example usage:
//
//	limiter := ratelimit.New(ratelimit.DefaultConfig())
//	tr := transfer.New(transfer.DefaultConfig(), limiter, logger.GetLogger())
//	tr.OnProgress(func(received, total int64, source transfer.SizeSource) {
//	    // Drive a progress bar; total is 0 when unknown
//	})
//
//	result, err := tr.Fetch(ctx, canvas, "/downloads/image_001.jpeg")
//	if err != nil {
//	    // Classified by pkg/errors: http_status, transport, partial_write
//	}
package transfer
