package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/local/pdfchat/internal/chat"
	cfgpkg "github.com/local/pdfchat/internal/config"
	"github.com/local/pdfchat/internal/oneshot"
)

// app owns the dependencies built for the running command. They are
// released by Close, which main calls whether or not the command failed.
type app struct {
	cfg  cfgpkg.Config
	deps *deps
}

func newApp(cfg cfgpkg.Config) *app { return &app{cfg: cfg} }

func (a *app) Close() {
	if a.deps != nil {
		a.deps.Close()
	}
}

// rootCmd builds the command tree. The config supplies defaults; flags win.
func (a *app) rootCmd() *cobra.Command {
	cfg := a.cfg
	var model string

	root := &cobra.Command{
		Use:   "pdfchat",
		Short: "Chat with a local LLM about the contents of PDF files",
		Long: `pdfchat extracts the text of a PDF and sends it to an Ollama server.

Write {pdf} in a prompt to insert the text of the loaded document. In chat
mode load a document with ":use <path>" and leave with ":exit".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&model, "model", "m", cfg.Ollama.Model, "Ollama model to use (or set PDFCHAT_MODEL)")

	var d *deps
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		d = buildDeps(cmd.Context(), cfg)
		a.deps = d
	}

	runner := func(cmd *cobra.Command, stream bool) *oneshot.Runner {
		return oneshot.New(oneshot.Options{
			Client: d.client,
			Loader: d.loader,
			Out:    bufio.NewWriter(cmd.OutOrStdout()),
			Model:  model,
			Stream: stream,
		})
	}

	var summarizePath string
	var stream bool
	summarizeCmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize a PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner(cmd, stream).Summarize(cmd.Context(), summarizePath)
		},
	}
	summarizeCmd.Flags().StringVarP(&summarizePath, "path", "p", "", "Path to the PDF (required)")
	summarizeCmd.Flags().BoolVar(&stream, "stream", false, "Print the summary as it is generated")
	_ = summarizeCmd.MarkFlagRequired("path")

	var namePath string
	nameCmd := &cobra.Command{
		Use:   "name",
		Short: "Suggest a title for a PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner(cmd, false).Name(cmd.Context(), namePath)
		},
	}
	nameCmd.Flags().StringVarP(&namePath, "path", "p", "", "Path to the PDF (required)")
	_ = nameCmd.MarkFlagRequired("path")

	var extractPath string
	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the extracted text of a PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner(cmd, false).Extract(cmd.Context(), extractPath)
		},
	}
	extractCmd.Flags().StringVarP(&extractPath, "path", "p", "", "Path to the PDF (required)")
	_ = extractCmd.MarkFlagRequired("path")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), chat.NewSession(model, d.client, d.loader, bufio.NewWriter(cmd.OutOrStdout())), cmd)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check the Ollama server, the model and optional dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary := d.checker(cfg, model).Summary(cmd.Context())
			fmt.Fprint(cmd.OutOrStdout(), summary.String())
			if !summary.Healthy() {
				return fmt.Errorf("not ready")
			}
			return nil
		},
	}

	root.AddCommand(summarizeCmd, nameCmd, extractCmd, chatCmd, statusCmd)
	return root
}

// runChat runs the session until it ends or ctx is cancelled. The input read
// cannot be interrupted, so on cancellation the reader is abandoned.
func runChat(ctx context.Context, s *chat.Session, cmd *cobra.Command) error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, cmd.InOrStdin()) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
