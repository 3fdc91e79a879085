// Command blockctl manages the blocklist of a running server from the shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/user/blocklist-service/internal/adapter/httpclient"
	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/usecase"
	"github.com/user/blocklist-service/pkg/config"
	"github.com/user/blocklist-service/pkg/logger"
)

const usage = `Usage: blockctl [flags] <command> [args]

Commands:
  list               print the detected and blocked sites
  block <website>    move a website to the blocked list
  unblock <website>  remove a website from the blocked list
  export [file]      write the blocked list to file ("-" for stdout, default blocked_sites.json)
  import <file>      merge a JSON array of websites into the blocked list

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(stderr, "blockctl: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("blockctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	server := fs.String("server", cfg.Server, "server base URL")
	timeout := fs.Duration("timeout", cfg.Timeout, "per-request timeout")
	logLevel := fs.String("log-level", "error", "log level for diagnostics on stderr")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	log, err := logger.New(*logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "blockctl: %v\n", err)
		return 2
	}
	defer log.Sync()

	notices := usecase.NotifierFunc(func(n entity.Notice) {
		if n.Blocking {
			if n.Failed() {
				fmt.Fprintf(stderr, "%s: %s\n", n.Message, n.Err)
			} else {
				fmt.Fprintln(stdout, n.Message)
			}
		}
	})
	repo := httpclient.NewDocumentRepo(*server, *timeout)
	uc := usecase.NewBlocklist(repo, notices, log)

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if err := dispatch(ctx, uc, cmd, rest, stdout, log); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		// Import failures were already printed by the notifier.
		if cmd != "import" || errors.Is(err, errReadFile) {
			fmt.Fprintf(stderr, "blockctl: %v\n", err)
		}
		return 1
	}
	return 0
}

var (
	errUsage    = errors.New("usage")
	errReadFile = errors.New("reading file")
)

func dispatch(ctx context.Context, uc usecase.Blocklist, cmd string, args []string, stdout io.Writer, log *zap.Logger) error {
	switch cmd {
	case "list":
		if len(args) != 0 {
			return errUsage
		}
		lists, err := uc.Lists(ctx)
		if err != nil {
			return err
		}
		printLists(stdout, lists)
		return nil

	case "block", "unblock":
		if len(args) != 1 {
			return errUsage
		}
		lists, err := uc.Toggle(ctx, args[0], cmd == "unblock")
		if err != nil {
			return err
		}
		printLists(stdout, lists)
		return nil

	case "export":
		if len(args) > 1 {
			return errUsage
		}
		path := usecase.ExportFileName
		if len(args) == 1 {
			path = args[0]
		}
		data, err := uc.Export(ctx)
		if err != nil {
			return err
		}
		if path == "-" {
			_, err = fmt.Fprintln(stdout, string(data))
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Debug("Exported blocked list", zap.String("path", path))
		fmt.Fprintf(stdout, "Exported blocked sites to %s\n", path)
		return nil

	case "import":
		if len(args) != 1 {
			return errUsage
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("%w %s: %v", errReadFile, args[0], err)
		}
		_, err = uc.Import(ctx, data)
		return err
	}
	return errUsage
}

func printLists(w io.Writer, lists *entity.Lists) {
	fmt.Fprintf(w, "Detected (%d):\n", len(lists.Detected))
	if len(lists.Detected) == 0 {
		fmt.Fprintln(w, "  None Detected")
	}
	for _, s := range lists.Detected {
		fmt.Fprintf(w, "  %s\n", s)
	}
	fmt.Fprintf(w, "Blocked (%d):\n", len(lists.Blocked))
	if len(lists.Blocked) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(lists.Blocked, "\n  "))
	}
}
