package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/qbank/internal/extract"
	"github.com/dgallion1/qbank/internal/version"
)

var (
	cfgFile string
	cfg     = defaultCLIConfig()
)

var rootCmd = &cobra.Command{
	Use:   "qbank",
	Short: "Extract structured questions from question-bank documents",
	Long: `qbank turns question-bank documents (PDF, DOCX, HTML, Markdown, CSV or
plain text) into classified exam questions.

Each numbered question is split from its course outcome (CO), cognitive
level (L) and marks, then assigned a module and a difficulty tier.

Defaults can be set in qbank.yaml (current directory or $HOME/.qbank) or
with QBANK_* environment variables, e.g. QBANK_SUBJECT or QBANK_MAX_BYTES.

Examples:
  qbank extract bank.pdf                  # YAML to stdout
  qbank extract bank.docx -o json         # JSON to stdout
  qbank extract bank.txt --subject "DBMS" # override the subject
  qbank watch ./inbox --out ./results     # extract files as they arrive`,
	Version:      version.GitRelease,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	d := defaultCLIConfig()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./qbank.yaml or $HOME/.qbank/qbank.yaml)")
	pf.StringP("output", "o", d.Output, "output format: yaml or json")
	pf.BoolP("verbose", "v", d.Verbose, "log extraction details to stderr")
	pf.String("subject", d.Subject, "subject stamped on every question")
	pf.Int64("max-bytes", d.MaxBytes, "reject files larger than this")
	pf.Bool("pdftotext", d.Pdftotext, "fall back to pdftotext when the PDF library yields no text")
	pf.Int("header-threshold", extract.DefaultHeaderThreshold, "header keywords that mark a line as table furniture")
	pf.Int("min-fallback-text", extract.DefaultMinFallbackTextLen, "minimum length of a question found by the fallback segmenter")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(watchCmd)
}

// newLogger writes human-readable logs to stderr so stdout stays parseable.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
