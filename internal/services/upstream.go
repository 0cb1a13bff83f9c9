package services

import "fmt"

// UpstreamError carries the provider's HTTP status so handlers can map it to
// a sensible downstream status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("market api: %d", e.Status)
}
