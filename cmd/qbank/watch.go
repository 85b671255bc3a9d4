package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dgallion1/qbank/internal/parser"
)

// settleDelay is how long a file must go without writes before it is read.
const settleDelay = 250 * time.Millisecond

var watchOut string

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Extract every document written into DIR",
	Long: `Watch DIR and extract each supported document created or rewritten in it.

Results are written next to the document (or into --out) as
NAME.questions.yaml or NAME.questions.json. Documents that fail are logged
and skipped. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchOut, "out", "", "directory for results (default: DIR)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := parseOutputFormat(cfg.Output)
	if err != nil {
		return err
	}
	outDir := watchOut
	if outDir == "" {
		outDir = args[0]
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}

	log := newLogger()
	dw, err := newDirWatcher(args[0], outDir, format, log)
	if err != nil {
		return err
	}
	defer dw.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", args[0])
	return dw.Run(cmd.Context())
}

// dirWatcher extracts documents as they settle in a watched directory.
type dirWatcher struct {
	w      *fsnotify.Watcher
	outDir string
	format OutputFormat
	log    *slog.Logger

	// onSettled runs on the Run goroutine once a file has been quiet for
	// settleDelay.
	onSettled func(path string)

	settled   chan *pendingFile
	timers    map[string]*pendingFile
	done      chan struct{}
	closeOnce sync.Once
}

// pendingFile is one armed settle timer. A fired timer is never re-armed;
// a later event replaces it and the stale hand-off is ignored.
type pendingFile struct {
	path  string
	timer *time.Timer
}

func newDirWatcher(dir, outDir string, format OutputFormat, log *slog.Logger) (*dirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	d := &dirWatcher{
		w:       w,
		outDir:  outDir,
		format:  format,
		log:     log,
		settled: make(chan *pendingFile, 16),
		timers:  make(map[string]*pendingFile),
		done:    make(chan struct{}),
	}
	d.onSettled = d.process
	return d, nil
}

// Close stops pending timers and releases any hand-off still waiting on Run.
func (d *dirWatcher) Close() error {
	d.closeOnce.Do(func() { close(d.done) })
	for _, p := range d.timers {
		p.timer.Stop()
	}
	return d.w.Close()
}

// Run processes events until ctx is cancelled or the watcher closes.
func (d *dirWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-d.w.Events:
			if !ok {
				return nil
			}
			d.handleEvent(ev)
		case err, ok := <-d.w.Errors:
			if !ok {
				return nil
			}
			d.log.Warn("watch error", "error", err)
		case p := <-d.settled:
			if d.timers[p.path] != p {
				continue // superseded by a later write
			}
			delete(d.timers, p.path)
			d.onSettled(p.path)
		}
	}
}

// handleEvent restarts the settle timer for a supported document.
func (d *dirWatcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") || !parser.IsSupportedExtension(ev.Name) {
		return
	}
	if p, ok := d.timers[ev.Name]; ok && p.timer.Stop() {
		p.timer.Reset(settleDelay)
		return
	}
	d.timers[ev.Name] = d.arm(ev.Name)
}

func (d *dirWatcher) arm(path string) *pendingFile {
	p := &pendingFile{path: path}
	p.timer = time.AfterFunc(settleDelay, func() { d.handOff(p) })
	return p
}

// handOff delivers p to Run. It gives up once the watcher is closed.
func (d *dirWatcher) handOff(p *pendingFile) bool {
	select {
	case d.settled <- p:
		return true
	case <-d.done:
		return false
	}
}

func (d *dirWatcher) process(path string) {
	out, err := extractFile(d.log, path, false)
	if err != nil {
		d.log.Warn("extraction failed", "file", path, "kind", parser.KindOf(err), "error", err)
		return
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dest := filepath.Join(d.outDir, base+".questions."+string(d.format))
	if err := writeResult(dest, d.format, out); err != nil {
		d.log.Warn("write result failed", "file", dest, "error", err)
		return
	}
	d.log.Info("wrote questions", "file", dest, "count", out.Count)
}

// writeResult replaces dest atomically so readers never see a partial file.
func writeResult(dest string, format OutputFormat, out extractOutput) error {
	f, err := os.CreateTemp(filepath.Dir(dest), ".qbank-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := OutputTo(f, format, out); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), dest)
}
