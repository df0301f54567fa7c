// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// signalContext is cancelled on SIGINT or SIGTERM, so running commands are killed and the baseline restored.
//
// A second signal exits immediately. Signals are no longer watched once cancel is called.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	signalChan := make(chan os.Signal, 2)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel, _ := watchSignals(parent, signalChan, func() { signal.Stop(signalChan) })
	return ctx, cancel
}

// watchSignals runs the signal loop of signalContext over any channel. done is closed once the loop has
// returned and unwatch has been called.
func watchSignals(parent context.Context, signals <-chan os.Signal, unwatch func()) (context.Context, context.CancelFunc, <-chan struct{}) {
	ctx, cancelCtx := context.WithCancel(parent)
	stop := make(chan struct{})
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(stop) })
		cancelCtx()
	}

	go func() {
		defer close(done)
		defer unwatch()

		select {
		case sig := <-signals:
			infoLogger.Printf("Received %v, stopping release...", sig)
			cancelCtx()
		case <-stop:
			return
		case <-parent.Done():
			return
		}
		select {
		case <-signals:
			infoLogger.Println("Received second signal, exiting now")
			osExit(1)
		case <-stop:
		}
	}()

	return ctx, cancel, done
}
