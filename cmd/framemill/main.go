// Command framemill runs one media-transformation job per process: it reads
// a JSON job envelope, drives the frame pipeline and prints a JSON result on
// stdout. Logs go to stderr so the result stays machine-readable. The exit
// status mirrors the result's success flag.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/framemill/framemill/internal/config"
	"github.com/framemill/framemill/internal/job"
	"github.com/framemill/framemill/internal/pipeline"
	"github.com/framemill/framemill/internal/storage"
	"github.com/framemill/framemill/internal/task"
)

// errJobFailed marks a job that ran and reported failure; the result JSON
// has already been printed when it surfaces.
var errJobFailed = errors.New("job failed")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, errJobFailed) {
			fmt.Fprintln(os.Stderr, "framemill:", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "framemill",
		Short:         "Single-shot media transformation worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the settings file")

	root.AddCommand(newRunCommand(&configPath))
	root.AddCommand(newTasksCommand())

	return root
}

func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run [payload]",
		Short: "Execute one job and print its result as JSON",
		Long: `Execute one job and print its result as JSON.

The payload is a JSON object with task, input_path, output_path and an
optional params object. It is read from the argument, from a file when the
argument starts with @, or from stdin when the argument is omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runJob(cmd.OutOrStdout(), *configPath, raw)
		},
	}
}

func newTasksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the accepted task names",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range task.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

// readPayload resolves the payload bytes from the argument, an @file
// reference or stdin.
func readPayload(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read payload from stdin: %w", err)
		}
		return raw, nil
	}

	if strings.HasPrefix(args[0], "@") {
		raw, err := os.ReadFile(args[0][1:])
		if err != nil {
			return nil, fmt.Errorf("read payload file: %w", err)
		}
		return raw, nil
	}

	return []byte(args[0]), nil
}

func runJob(stdout io.Writer, configPath string, raw []byte) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	pipeline.Init(logger)

	var store storage.Storage
	if cfg.S3Enabled() {
		store, err = storage.NewS3Storage(cfg.Storage.ScratchDir, storage.S3Config{
			Bucket:          cfg.Storage.S3.Bucket,
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
		})
	} else {
		store, err = storage.NewLocalStorage(cfg.Storage.ScratchDir)
	}
	if err != nil {
		return err
	}

	var res *job.Result
	if payload, err := job.ParsePayload(raw); err != nil {
		res = job.Failure(err)
	} else {
		res = job.NewRunner(logger, store).Execute(context.Background(), payload)
	}

	enc := json.NewEncoder(stdout)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if !res.Success {
		return errJobFailed
	}
	return nil
}
