package utils

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{125000, "1250.00"},
		{0, "0.00"},
		{5, "0.05"},
		{99, "0.99"},
		{100, "1.00"},
	}

	for _, tt := range tests {
		if got := FormatCents(tt.cents); got != tt.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestParseUint(t *testing.T) {
	if got := ParseUint("42"); got != 42 {
		t.Errorf("ParseUint(\"42\") = %d, want 42", got)
	}
	if got := ParseUint("not-a-number"); got != 0 {
		t.Errorf("ParseUint garbage = %d, want 0", got)
	}
}

func TestGenerateRateLimitKey(t *testing.T) {
	got := GenerateRateLimitKey(7, "/api/v1/collections/run")
	want := "rl:7:/api/v1/collections/run"
	if got != want {
		t.Errorf("GenerateRateLimitKey() = %q, want %q", got, want)
	}
}

func TestErrorResponse(t *testing.T) {
	app := fiber.New()
	ctx := app.AcquireCtx(&fasthttp.RequestCtx{})
	defer app.ReleaseCtx(ctx)

	if err := ErrorResponse(ctx, fiber.StatusUnprocessableEntity, "no workflow configured",
		errors.New("bucket dpd_31_60")); err != nil {
		t.Fatalf("ErrorResponse() error = %v", err)
	}

	if ctx.Response().StatusCode() != fiber.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", ctx.Response().StatusCode())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(ctx.Response().Body(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["error"] != "no workflow configured" {
		t.Errorf("error = %v", body["error"])
	}
	if body["details"] != "bucket dpd_31_60" {
		t.Errorf("details = %v", body["details"])
	}
}

func TestTruncateSMSBody(t *testing.T) {
	if got := truncateSMSBody("short message"); got != "short message" {
		t.Errorf("truncateSMSBody() altered a short body: %q", got)
	}

	long := strings.Repeat("a", 200)
	if got := truncateSMSBody(long); utf8.RuneCountInString(got) != 160 {
		t.Errorf("truncated length = %d runes, want 160", utf8.RuneCountInString(got))
	}

	// 200 two-byte runes: a byte-offset cut at 160 would land inside
	// a rune.
	accented := strings.Repeat("é", 200)
	got := truncateSMSBody(accented)
	if utf8.RuneCountInString(got) != 160 {
		t.Errorf("truncated length = %d runes, want 160", utf8.RuneCountInString(got))
	}
	if !utf8.ValidString(got) {
		t.Error("truncation produced invalid UTF-8")
	}
}

func TestSuccessResponse(t *testing.T) {
	resp := SuccessResponse(map[string]int{"drafts_created": 3})
	if resp["success"] != true {
		t.Errorf("success = %v, want true", resp["success"])
	}
	if resp["data"] == nil {
		t.Error("data missing from success response")
	}
}
