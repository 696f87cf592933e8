package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

type operation func(ctx context.Context) error

// gracefulShutdown runs every cleanup operation concurrently once a
// termination signal arrives, then releases the returned channel. Operations
// still running when the timeout elapses are abandoned and the process
// force-exits.
func gracefulShutdown(ctx context.Context, timeout time.Duration, ops map[string]operation) <-chan struct{} {
	wait := make(chan struct{})
	go func() {
		s := make(chan os.Signal, 1)
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

		sig := <-s
		logrus.Infof("received %s, shutting down", sig)

		timeoutFunc := time.AfterFunc(timeout, func() {
			logrus.Errorf("shutdown timed out after %s, force exit", timeout)
			os.Exit(0)
		})
		defer timeoutFunc.Stop()

		var wg sync.WaitGroup
		for key, op := range ops {
			wg.Add(1)
			go func() {
				defer wg.Done()

				logrus.Infof("cleaning up: %s", key)
				if err := op(ctx); err != nil {
					logrus.Errorf("%s: clean up failed: %v", key, err)
					return
				}

				logrus.Infof("%s shut down cleanly", key)
			}()
		}

		wg.Wait()
		close(wait)
	}()

	return wait
}
