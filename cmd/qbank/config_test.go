package main

import (
	"encoding/json"
	"testing"

	"github.com/spf13/pflag"

	"github.com/dgallion1/qbank/internal/extract"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(writeFile(t, "empty.yaml", ""), nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg != defaultCLIConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeFile(t, "qbank.yaml", "subject: DBMS\noutput: json\nmax-bytes: 2048\npdftotext: false\n")
	t.Setenv("QBANK_MAX_BYTES", "4096")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("subject", "", "")
	flags.String("output", "", "")
	if err := flags.Parse([]string{"--subject", "Operating Systems"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path, flags)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Subject != "Operating Systems" {
		t.Errorf("flag should win, got subject %q", cfg.Subject)
	}
	if cfg.MaxBytes != 4096 {
		t.Errorf("env should beat the file, got max-bytes %d", cfg.MaxBytes)
	}
	if cfg.Output != "json" || cfg.Pdftotext {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.HeaderThreshold != extract.DefaultHeaderThreshold {
		t.Errorf("unset keys should keep defaults, got %d", cfg.HeaderThreshold)
	}
}

func TestLoadConfig_BadFile(t *testing.T) {
	if _, err := loadConfig(writeFile(t, "broken.yaml", "subject: [unterminated\n"), nil); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestExtractCommand_ConfigFile(t *testing.T) {
	conf := writeFile(t, "qbank.yaml", "subject: DBMS\noutput: json\n")
	doc := writeFile(t, "bank.txt", bankText)

	out, err := runCLI(t, "--config", conf, "extract", doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res extractOutput
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("expected JSON from config output setting: %v\n%s", err, out)
	}
	if res.Count != 2 || res.Questions[0].Subject != "DBMS" {
		t.Errorf("config subject not applied: %+v", res)
	}
}
