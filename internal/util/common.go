package util

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

func ContinueOrFatal(err error) {
	if err != nil {
		logrus.Fatal(err)
	}
}

// ProcessWithTimeout runs callback with a bounded context and gives it up
// once the deadline passes. Incoming bot updates do not carry a context of
// their own, so every update handler is wrapped with this.
func ProcessWithTimeout(timeout time.Duration, label string, callback func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- callback(ctx)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("processing timeout for %s", label)
	case err := <-done:
		return err
	}
}
