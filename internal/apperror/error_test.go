package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew_DefaultMessageAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		code       Code
		wantMsg    string
		wantStatus int
	}{
		{"cannot get price", CodeCannotGetPriceFromOracle, "Cannot get price from oracle", http.StatusUnprocessableEntity},
		{"configuration", CodeConfigurationError, "Configuration error", http.StatusPreconditionFailed},
		{"invalid uid", CodeInvalidOrderUID, "Invalid order UID", http.StatusBadRequest},
		{"rate limit", CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests},
		{"unknown code", Code("SOMETHING_ELSE"), "SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, err.Message)
			}
			if err.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, err.StatusCode)
			}
		})
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := New(CodeConfigurationError,
		WithMessage("Uniswap V3 Router Contract 0xabc does not exist"),
		WithContext("network=goerli"),
	)

	got := err.Error()
	if !strings.Contains(got, "Uniswap V3 Router Contract 0xabc does not exist") {
		t.Errorf("message missing from %q", got)
	}
	if !strings.Contains(got, "context: network=goerli") {
		t.Errorf("context missing from %q", got)
	}
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	base := New(CodeCannotGetPriceFromOracle, WithMessage("no pool"))
	wrapped := fmt.Errorf("pricing: %w", base)

	if !HasCode(wrapped, CodeCannotGetPriceFromOracle) {
		t.Error("expected HasCode to see through fmt wrapping")
	}
	if HasCode(wrapped, CodeConfigurationError) {
		t.Error("expected HasCode to reject a different code")
	}
	if GetCode(wrapped) != CodeCannotGetPriceFromOracle {
		t.Errorf("expected GetCode to find the code, got %s", GetCode(wrapped))
	}
	if GetCode(errors.New("plain")) != CodeUnknownError {
		t.Error("expected unknown code for plain errors")
	}
}

func TestWithCause_Unwraps(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := New(CodeEthereumRPCError, WithCause(cause))

	if !errors.Is(err, cause) {
		t.Error("expected error to unwrap to its cause")
	}
	if !IsAppError(fmt.Errorf("call: %w", err)) {
		t.Error("expected IsAppError to see through fmt wrapping")
	}
}
