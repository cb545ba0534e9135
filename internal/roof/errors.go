package roof

import "errors"

// Sentinel errors for roof status fetches. Callers map every one of them to
// an unreachable roof; they exist so operators can see the cause in logs.
var (
	// ErrInvalidURL indicates the configured roof URL cannot be requested.
	ErrInvalidURL = errors.New("roof: invalid status url")

	// ErrFetchFailed indicates a transport failure, timeout or cancellation.
	ErrFetchFailed = errors.New("roof: fetch failed")

	// ErrUnexpectedStatus indicates a non-2xx HTTP response.
	ErrUnexpectedStatus = errors.New("roof: unexpected http status")

	// ErrBodyTooLarge indicates the response exceeded the configured cap.
	ErrBodyTooLarge = errors.New("roof: response body too large")

	// ErrMalformedBody indicates the response is not UTF-8 text.
	ErrMalformedBody = errors.New("roof: response is not text")
)
