package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestError_ContextAndUnwrap(t *testing.T) {
	cause := &HTTPStatusError{URL: "https://x.test/?p=42", StatusCode: 503}
	err := error(&Error{Provider: "ifdb", Stage: StageFetch, ID: "42", URL: cause.URL, Err: cause})

	msg := err.Error()
	for _, want := range []string{"id=42", "stage=fetch", "https://x.test/?p=42", "HTTP 503"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("错误信息缺少 %q：%s", want, msg)
		}
	}

	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != 503 {
		t.Fatalf("期望可 errors.As 到 HTTPStatusError，实际 %v", err)
	}
}

func TestHTTPStatusError_Location(t *testing.T) {
	e := &HTTPStatusError{StatusCode: 302, Location: " /login "}
	if got := e.Error(); got != "HTTP 302 location=/login" {
		t.Fatalf("不符合预期：%q", got)
	}
	if got := (&BlockedError{Reason: "cf-challenge"}).Error(); got != "blocked: cf-challenge" {
		t.Fatalf("不符合预期：%q", got)
	}
}
