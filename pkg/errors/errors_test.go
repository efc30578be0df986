package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownAndUnknownCodes(t *testing.T) {
	t.Parallel()

	if meta := MetadataFor(CodeTimeout); meta.HTTPStatus != http.StatusGatewayTimeout {
		t.Fatalf("timeout metadata status = %d", meta.HTTPStatus)
	}
	if meta := MetadataFor(Code("BOGUS")); meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should fall back to internal, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("connection refused")
	err := Wrap(CodeUpstream, cause, "fetch products")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped error should match its cause")
	}
	if typed := As(fmt.Errorf("outer: %w", err)); typed == nil || typed.Code() != CodeUpstream {
		t.Fatalf("As should find typed error through wrapping, got %v", typed)
	}
}

func TestWrapNilCauseBehavesLikeNew(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeValidation, nil, "empty cart")
	if err.Unwrap() != nil {
		t.Fatal("nil cause should not be wrapped")
	}
	if err.Code() != CodeValidation {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestUpstreamStatusInMessageAndDump(t *testing.T) {
	t.Parallel()

	err := New(CodeUpstream, "add to cart rejected").WithUpstreamStatus(409)
	if got := err.Error(); got != "UPSTREAM_ERROR (409): add to cart rejected" {
		t.Fatalf("unexpected error string %q", got)
	}

	dump := Dump(err)
	if dump.UpstreamStatus != 409 || dump.Code != CodeUpstream {
		t.Fatalf("unexpected dump %+v", dump)
	}
	if len(dump.Chain) == 0 {
		t.Fatal("dump chain should not be empty")
	}
}

func TestNilErrorAccessors(t *testing.T) {
	t.Parallel()

	var err *Error
	if err.Code() != CodeInternal {
		t.Fatal("nil error should report internal code")
	}
	if err.Error() != "" || err.Message() != "" {
		t.Fatal("nil error should render empty strings")
	}
	if err.WithDetails("x") != nil || err.WithUpstreamStatus(500) != nil {
		t.Fatal("nil error builders should stay nil")
	}
}
