package util

import (
	"errors"
	"strings"
)

// Pipeline error taxonomy. Every failure crossing the ingestion or answering
// boundary wraps one of these sentinels so callers can branch without string
// matching.
var (
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrPasswordProtected = errors.New("document is password protected")
	ErrCorrupted         = errors.New("document is corrupted or unreadable")
	ErrEmptyFile         = errors.New("file is empty")
	ErrNetwork           = errors.New("network error while processing document")
	ErrNoReadableText    = errors.New("no readable text found in document")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrGenerationFailed  = errors.New("answer generation failed")
	ErrUnauthorized      = errors.New("not authorized for this document")
	ErrCancelled         = errors.New("operation cancelled")
)

const maxUserMessageRunes = 200

// UserMessage renders err as a compact, user-displayable string with a
// remediation hint when the failure pattern suggests one.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := truncateRunes(err.Error(), maxUserMessageRunes)
	if hint := remediationHint(err); hint != "" {
		return msg + " (" + hint + ")"
	}
	return msg
}

func remediationHint(err error) string {
	switch {
	case errors.Is(err, ErrPasswordProtected):
		return "remove the password from the PDF and upload again"
	case errors.Is(err, ErrCorrupted):
		return "re-export the PDF from its source and try again"
	case errors.Is(err, ErrEmptyFile):
		return "the uploaded file had no content"
	case errors.Is(err, ErrNoReadableText):
		return "this looks like a scanned or image-only document; try a higher quality scan"
	case errors.Is(err, ErrNetwork):
		return "check your connection and retry the upload"
	case errors.Is(err, ErrUnsupportedType):
		return "only .txt and .pdf files are accepted"
	case errors.Is(err, ErrCancelled):
		return "the operation was interrupted"
	}
	low := strings.ToLower(err.Error())
	switch {
	case strings.Contains(low, "scanned"):
		return "scanned documents need text recognition; retry with force recognition enabled"
	case strings.Contains(low, "password"):
		return "remove the password from the PDF and upload again"
	case strings.Contains(low, "corrupt"):
		return "re-export the PDF from its source and try again"
	}
	return ""
}

func truncateRunes(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}
