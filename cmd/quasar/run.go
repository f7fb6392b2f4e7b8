package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quasar-dev/quasar"
	"github.com/quasar-dev/quasar/interp"
)

var (
	approveFlag  bool
	silentFlag   bool
	debugFlag    bool
	pollInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run RUNFILE",
	Short: "Execute a program to quiescence",
	Args:  cobra.MinimumNArgs(1),
	Run:   runCommand,
}

func init() {
	runCmd.Flags().BoolVar(&approveFlag, "approve", false, "Gate every external dispatch through a console prompt (overrides the runfile)")
	runCmd.Flags().BoolVar(&silentFlag, "silent", false, "Suppress the execution trace, print only the return value")
	runCmd.Flags().BoolVar(&debugFlag, "debug", false, "Dump the loaded program before executing")
	runCmd.Flags().DurationVar(&pollInterval, "poll-interval", interp.DefaultPollInterval, "Sleep between outer iterations while calls are pending")
}

func runCommand(cmd *cobra.Command, args []string) {
	runfile, err := quasar.LoadRunfileFromFile(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load runfile")
	}

	program, err := runfile.LoadProgram()
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load program")
	}

	if debugFlag {
		color.Fprintf(os.Stderr, "<cyan>Loaded program:</>\n%s\n", interp.FormatProgram(program))
	}

	opts := interp.Options{
		Registry:     runfile.BuildRegistry(),
		PollInterval: pollInterval,
	}
	if !silentFlag {
		opts.Reporter = &interp.ColorReporter{Writer: os.Stderr}
	}
	if approveFlag || runfile.Run.Approval {
		opts.Approver = interp.NewConsoleApprover(os.Stdin, os.Stderr)
	}

	state, err := interp.Execute(context.Background(), program, opts)
	if err != nil {
		var ierr *interp.Error
		if errors.As(err, &ierr) {
			log.Error().Str("kind", ierr.Kind.String()).Msg(ierr.Message)
		}
		log.Fatal().Err(err).Msg("Execution failed")
	}

	if silentFlag {
		if ret, ok := state.ReturnValue(); ok {
			color.Println(interp.FormatConform(ret))
		} else {
			color.Println("no return")
		}
	}
}
