package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbnkron/kron/pkg/countdown"
)

var (
	countdownWatch    bool
	countdownInterval time.Duration
)

var countdownCmd = &cobra.Command{
	Use:   "countdown <deadline> [deadline] ...",
	Short: "Show the time remaining until one or more deadlines",
	Long: `Countdown renders the label kron shows for a goal deadline.

A deadline is an RFC 3339 timestamp, a date (2030-01-01, read as UTC
midnight), a local date-time (2030-01-01T09:00) or epoch milliseconds:

  kronctl countdown 2030-01-01 1893456000000

With --watch every deadline is refreshed once per interval until it has
passed or the command is interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCountdown,
}

func init() {
	countdownCmd.Flags().BoolVar(&countdownWatch, "watch", false, "Keep refreshing until every deadline has passed")
	countdownCmd.Flags().DurationVar(&countdownInterval, "interval", countdown.DefaultInterval, "Refresh interval for --watch")
}

func runCountdown(cmd *cobra.Command, args []string) error {
	deadlines := make([]any, len(args))
	for i, arg := range args {
		deadlines[i] = deadlineArg(arg)
		if _, ok := countdown.Normalize(deadlines[i]); !ok {
			return fmt.Errorf("invalid deadline %q", arg)
		}
	}

	out := cmd.OutOrStdout()
	if !countdownWatch {
		for i, d := range deadlines {
			target, _ := countdown.Normalize(d)
			fmt.Fprintf(out, "%s\t%s\n", args[i], countdown.Label(countdown.Tick(target, now())))
		}
		return nil
	}
	return watchCountdowns(cmd.Context(), out, args, deadlines)
}

// watchCountdowns tracks every deadline on one Board and prints each state
// until all tickers have finished or ctx ends.
func watchCountdowns(ctx context.Context, out io.Writer, names []string, deadlines []any) error {
	board := countdown.NewBoard(
		countdown.WithInterval(countdownInterval),
		countdown.WithClock(now),
	)
	defer board.Close()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i, d := range deadlines {
		ch, ok := board.Track(names[i], d)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(name string, ch <-chan countdown.State) {
			defer wg.Done()
			for st := range ch {
				mu.Lock()
				fmt.Fprintf(out, "%s\t%s\n", name, countdown.Label(st))
				mu.Unlock()
			}
		}(names[i], ch)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		board.Close()
		<-finished
	}
	return nil
}

// deadlineArg reads a purely numeric argument as epoch milliseconds.
func deadlineArg(s string) any {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return json.Number(s)
	}
	return s
}
