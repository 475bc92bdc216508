package cli

import (
	"context"
	"io"
)

// Execute runs the forcetree command line with ctx; canceling ctx stops
// long-running commands such as serve and view. Logs go to stderr.
//
//	func main() {
//	    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	    defer stop()
//	    if err := cli.Execute(ctx, os.Stderr); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context, stderr io.Writer) error {
	return New(stderr, LogInfo).RootCommand().ExecuteContext(ctx)
}
