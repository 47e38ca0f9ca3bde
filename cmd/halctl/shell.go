package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/shlex"

	"github.com/seagrayinc/halproto/pkg/fet"
	"github.com/seagrayinc/halproto/pkg/hal"
)

// shell runs one command per input line until EOF, "quit" or cancellation. Command errors are
// reported and the shell carries on.
func shell(ctx context.Context, f *fet.FET, in io.Reader, w io.Writer, logger *slog.Logger) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(w, "hal> ")
		if !sc.Scan() {
			fmt.Fprintln(w)
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "quit", "exit":
			return nil
		case "help":
			usage(w)
			continue
		}

		if err := dispatch(ctx, f, args, w); err != nil {
			if code, ok := hal.ExceptionOf(err); ok {
				logger.Debug("command failed", slog.String("command", args[0]), slog.String("exception", code.String()))
			}
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}
}
