package supervisor

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessagesNameTheServer(t *testing.T) {
	errs := []error{
		&ValidationError{ServerID: "srv", Reason: "empty command"},
		&LaunchError{ServerID: "srv", Err: errors.New("no such file")},
		&VerificationError{ServerID: "srv", Err: errors.New("exit status 3")},
		&VerificationError{ServerID: "srv"},
		&StateError{Op: "stop", ServerID: "srv", Reason: "not running"},
	}
	for _, err := range errs {
		if !strings.Contains(err.Error(), "srv") {
			t.Errorf("%T message should name the server: %q", err, err.Error())
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	for _, err := range []error{
		&ValidationError{ServerID: "s", Reason: "r", Err: cause},
		&LaunchError{ServerID: "s", Err: cause},
		&VerificationError{ServerID: "s", Err: cause},
	} {
		if !errors.Is(err, cause) {
			t.Errorf("%T should unwrap to its cause", err)
		}
	}
}

func TestErrUnsupportedIsSentinel(t *testing.T) {
	wrapped := fmt.Errorf("send command: %w", ErrUnsupported)
	if !errors.Is(wrapped, ErrUnsupported) {
		t.Fatalf("wrapped sentinel should match with errors.Is")
	}
}
