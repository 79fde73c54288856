// Package httpbridge implements the guest engine's HTTP client on top of the
// host fetch primitive.
//
// A request is carried out by a shared task: the task calls host.Fetcher,
// reads the redirected flag and status, reads the whole body, and sends the
// Response back to the caller through a one-shot future. The caller's
// goroutine is never blocked by the fetch itself.
//
// Status codes outside 100..999 are request errors. Response headers are
// always empty because the host fetch primitive does not expose them.
// Requests are not retried and cannot be cancelled once submitted.
package httpbridge
