package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/taskchain/taskchain/pkg/actions"
	"github.com/taskchain/taskchain/pkg/chain"
	"github.com/taskchain/taskchain/pkg/config"
	"github.com/taskchain/taskchain/pkg/store"
	"github.com/taskchain/taskchain/pkg/sync"
	"github.com/taskchain/taskchain/pkg/todoist"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var internal *actions.InternalError
		if errors.As(err, &internal) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "taskchain [base args] -action [args] [key=value] ...",
		Short: "Filter, sort, print and edit Todoist tasks with a chain of actions",
		Long: `taskchain runs a chain of actions over your Todoist tasks, left to right.

Examples:
  taskchain -is due before tomorrow -sort -print
  taskchain -project Work -p1 -reschedule tomorrow -commit
  taskchain -help operators`,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), args)
		},
	}
}

func execute(ctx context.Context, args []string) error {
	parsed := chain.Parse(args)

	cfg, err := config.Load(parsed.BaseKwargs)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	client := todoist.NewClient(cfg.Token, cfg.Timeout)
	if cfg.APIURL != "" {
		client.BaseURL = cfg.APIURL
	}
	client.Log = log

	st, err := store.NewStore(cfg.DataDir)
	if err != nil {
		return err
	}
	syncer := sync.New(client, st, log)

	s := actions.NewSession(ctx, cfg, syncer, log)
	s.Styled = isatty.IsTerminal(os.Stdout.Fd())
	if cfg.File != "" {
		log.Debugf("Using config file %s", cfg.File)
	}

	_, err = s.Execute(parsed)
	if n := len(s.Queue); err == nil && n > 0 {
		log.Warnf("%d changes were queued but not committed (add -commit)", n)
	}
	return err
}
