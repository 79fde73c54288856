package httpbridge

import (
	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/host"
)

// Header is one request or response header.
type Header = host.Header

// Options are per-request fetch options.
type Options struct {
	// CORSProxy routes the request through this proxy when set.
	CORSProxy string
	// Gzip asks the host to negotiate and decode compressed responses.
	Gzip bool
}

// Request is an outbound HTTP request issued by the guest.
type Request struct {
	URL     string
	Method  string
	Headers []Header
	Body    []byte
	Options Options
}

// Response is the result of a Request. Headers is always empty.
type Response struct {
	Headers    []Header
	Body       []byte
	Status     Status
	Redirected bool
}

// Status is a validated HTTP status code.
type Status uint16

// StatusFromCode validates code. Codes from 100 to 999 are accepted.
func StatusFromCode(code int) (Status, error) {
	if code < 100 || code > 999 {
		return 0, errors.InvalidStatus(code)
	}
	return Status(code), nil
}

// Code returns the numeric status.
func (s Status) Code() int { return int(s) }

// IsSuccess reports whether s is in the 2xx range.
func (s Status) IsSuccess() bool { return s >= 200 && s < 300 }
