package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/qbank/internal/extract"
	"github.com/dgallion1/qbank/internal/parser"
	"github.com/dgallion1/qbank/internal/pipeline"
)

var extractRaw bool

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract questions from a question-bank document",
	Long: `Decode FILE, segment it into numbered questions and print them.

Exit status is 2 when the document cannot be decoded and 3 when it decodes
but contains no numbered questions.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractRaw, "raw", false, "print extracted questions before classification")
}

// extractOutput is the document printed by the extract command.
type extractOutput struct {
	File       string                      `json:"file" yaml:"file"`
	Strategy   extract.Strategy            `json:"strategy" yaml:"strategy"`
	Candidates int                         `json:"candidates" yaml:"candidates"`
	Dropped    int                         `json:"dropped" yaml:"dropped"`
	Count      int                         `json:"count" yaml:"count"`
	Questions  []extract.Question          `json:"questions,omitempty" yaml:"questions,omitempty"`
	Extracted  []extract.ExtractedQuestion `json:"extracted,omitempty" yaml:"extracted,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	format, err := parseOutputFormat(cfg.Output)
	if err != nil {
		return err
	}
	out, err := extractFile(newLogger(), args[0], extractRaw)
	if err != nil {
		return err
	}
	return OutputTo(cmd.OutOrStdout(), format, out)
}

// extractFile decodes and extracts one document using the loaded config.
func extractFile(log *slog.Logger, path string, raw bool) (extractOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extractOutput{}, fmt.Errorf("read %s: %w", path, err)
	}

	text, err := parser.DecodeText(data, filepath.Base(path), parser.Options{
		MaxBytes:          cfg.MaxBytes,
		FallbackPdftotext: cfg.Pdftotext,
	})
	if err != nil {
		return extractOutput{}, fmt.Errorf("cannot read document: %w", err)
	}
	log.Debug("decoded document", "file", path, "bytes", len(data), "text_len", len(text))

	res, questions, err := pipeline.Extract(cfg.extractor(), nil, text, cfg.Subject)
	if err != nil {
		return extractOutput{}, fmt.Errorf("%s: %w", path, err)
	}
	log.Info("extraction complete",
		"file", path,
		"questions", len(questions),
		"strategy", res.Strategy,
		"dropped", res.Dropped,
	)

	out := extractOutput{
		File:       path,
		Strategy:   res.Strategy,
		Candidates: res.Candidates,
		Dropped:    res.Dropped,
		Count:      len(questions),
	}
	if raw {
		out.Extracted = res.Questions
	} else {
		out.Questions = questions
	}
	return out, nil
}
