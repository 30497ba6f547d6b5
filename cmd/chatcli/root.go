package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dudesk/dudesk-chat/internal/apiclient"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/prompt"
	"github.com/dudesk/dudesk-chat/internal/render"
	"github.com/dudesk/dudesk-chat/internal/sanitize"
	"github.com/dudesk/dudesk-chat/internal/tui"
)

type rootOptions struct {
	verbose      bool
	promptConfig string
	log          *logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "chatcli",
		Short:         "DU Desk AI Chat Assistant in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.log = logger.Nop()
			if !opts.verbose {
				return nil
			}
			log, err := logger.New("development")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				opts.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	root.PersistentFlags().StringVar(&opts.promptConfig, "prompt-config", "", "prompt YAML supplying the hidden file names")

	root.AddCommand(newChatCmd(opts), newSanitizeCmd(opts))
	return root
}

// sanitizer honours the hidden names of the prompt document in use.
func (o *rootOptions) sanitizer() (*sanitize.Sanitizer, error) {
	doc, err := prompt.Default()
	if o.promptConfig != "" {
		doc, err = prompt.Load(o.promptConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("load prompt config: %w", err)
	}
	return sanitize.New(sanitize.WithHiddenNames(doc.HiddenNames()...)), nil
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var (
		server string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat against a running server",
		Example: `  chatcli chat --server http://localhost:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := apiclient.New(opts.log, server, &http.Client{})
			if err != nil {
				return err
			}
			s, err := opts.sanitizer()
			if err != nil {
				return err
			}
			m := tui.NewModel(cmd.Context(), client, tui.Options{
				Renderer: render.New(render.Options{Sanitizer: s, Strict: strict}),
			})
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run ui: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "chat server base URL")
	cmd.Flags().BoolVar(&strict, "strict", true, "apply the markup allow-list to replies")
	return cmd
}

func newSanitizeCmd(opts *rootOptions) *cobra.Command {
	var (
		trace bool
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "sanitize",
		Short: "Sanitize model output read from stdin",
		Long: `Runs the reply sanitizer over stdin and prints the markup.
With --trace every pipeline step is printed with its intermediate text.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			s, err := opts.sanitizer()
			if err != nil {
				return err
			}
			text := strings.TrimRight(string(raw), "\n")
			out := cmd.OutOrStdout()
			if trace {
				for i, step := range s.Trace(text) {
					fmt.Fprintf(out, "%2d %-28s %s\n", i+1, step.Label, step.Text)
				}
				return nil
			}
			result := s.Sanitize(text)
			if plain {
				result = render.PlainText(result)
			}
			fmt.Fprintln(out, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print every pipeline step")
	cmd.Flags().BoolVar(&plain, "plain", false, "print terminal text instead of markup")
	return cmd
}
