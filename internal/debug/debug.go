package debug

import (
	"context"
	"fmt"
	"os"
)

// StopIf blocks until ctx is done if the environment variable
// DATAFETCH_TEST_STOP equals the provided label. It prints a marker line to
// stderr so tests can wait until the exact stop point is reached before
// sending signals.
func StopIf(ctx context.Context, label string) {
	if os.Getenv("DATAFETCH_TEST_STOP") != label {
		return
	}
	fmt.Fprintf(os.Stderr, "TEST_stop_point_%s\n", label)
	<-ctx.Done()
}
