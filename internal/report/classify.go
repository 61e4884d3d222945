// internal/report/classify.go
package report

import (
	"errors"

	"github.com/tamzrod/statpoll/internal/extract"
	"github.com/tamzrod/statpoll/internal/poller"
	"github.com/tamzrod/statpoll/internal/poller/https"
	"github.com/tamzrod/statpoll/internal/status"
	"github.com/tamzrod/statpoll/internal/writer"
)

// Failure kinds, used as log words and metric labels.
const (
	KindLinkDown     = "link_down"
	KindTransport    = "transport"
	KindHTTPStatus   = "http_status"
	KindParseFailed  = "parse_failed"
	KindPathMissing  = "path_missing"
	KindTypeMismatch = "type_mismatch"
	KindBadValue     = "bad_value"
	KindError        = "error"
)

// Classify maps a cycle error to its status code and kind.
func Classify(err error) (uint16, string) {
	if err == nil {
		return status.CodeNone, ""
	}

	var te *https.TransportError
	var bv *writer.BadValueError

	switch {
	case errors.Is(err, poller.ErrLinkDown):
		return status.CodeLinkDown, KindLinkDown
	case errors.As(err, &te):
		if te.Op == "status" {
			return status.CodeHTTPStatus, KindHTTPStatus
		}
		return status.CodeTransport, KindTransport
	case errors.Is(err, extract.ErrParseFailed):
		return status.CodeParseFailed, KindParseFailed
	case errors.Is(err, extract.ErrPathMissing):
		return status.CodePathMissing, KindPathMissing
	case errors.Is(err, extract.ErrTypeMismatch):
		return status.CodeTypeMismatch, KindTypeMismatch
	case errors.As(err, &bv):
		return status.CodeBadValue, KindBadValue
	}

	return errorCode(err), KindError
}

// errorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns CodeGeneric.
func errorCode(err error) uint16 {
	type coder interface{ Code() uint16 }

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return status.CodeGeneric
}
