package asynctimer_test

import (
	"testing"

	"go.uber.org/goleak"
)

// Every test must leave its timer idle; a leaked wait/invoke loop fails the
// whole run here.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
