package ai

import "errors"

// ErrRateLimited is the distinguishable throttle signal. Embedder
// implementations wrap it into the returned error when the remote service
// rejects a request for rate reasons; everything downstream tests for it
// with errors.Is.
var ErrRateLimited = errors.New("embedding service rate limited")
