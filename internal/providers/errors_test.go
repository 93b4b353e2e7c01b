package providers

import (
	"errors"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		in   string
		want ErrorType
	}{
		{"insufficient_quota: you have run out of credits", ErrorQuota},
		{"429 Too Many Requests", ErrorRate},
		{"prompt context too long", ErrorContext},
		{"request timeout after 60s", ErrorTransient},
		{"dial tcp: connection refused", ErrorTransient},
		{"model not found", ErrorPermanent},
	}
	for _, c := range cases {
		if got := ClassifyError(errors.New(c.in)); got != c.want {
			t.Fatalf("ClassifyError(%q) = %s, want %s", c.in, got, c.want)
		}
	}
	if got := ClassifyError(nil); got != "" {
		t.Fatalf("ClassifyError(nil) = %s, want empty", got)
	}
}
