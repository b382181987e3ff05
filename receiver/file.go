package receiver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lixenwraith/statuslog"
	"github.com/lixenwraith/statuslog/formatter"
)

// FileConfig configures a File receiver
type FileConfig struct {
	Directory  string
	Name       string // base name, defaults to the process name passed to Init
	Format     string // "txt", "json", or "raw"
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns sensible rotation defaults writing to dir
func DefaultFileConfig(dir string) FileConfig {
	return FileConfig{
		Directory:  dir,
		Format:     "txt",
		MaxSizeMB:  25,
		MaxBackups: 5,
		MaxAgeDays: 7,
	}
}

// File writes results, snapshots, and status lines to three rotating files:
// <name>.results.log, <name>.snapshots.log, and <name>.status.log
type File struct {
	mu        sync.Mutex
	cfg       FileConfig
	f         *formatter.Formatter
	results   *lumberjack.Logger
	snapshots *lumberjack.Logger
	status    *lumberjack.Logger
}

// NewFile creates a file receiver. Files are opened by Init, or lazily on
// first write when Init has not run.
func NewFile(cfg FileConfig) (*File, error) {
	if cfg.Directory == "" {
		return nil, fmt.Errorf("receiver: file directory cannot be empty")
	}
	if cfg.Format == "" {
		cfg.Format = "txt"
	}
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		return nil, fmt.Errorf("receiver: failed to create log directory '%s': %w", cfg.Directory, err)
	}
	return &File{
		cfg: cfg,
		f:   formatter.New().Type(cfg.Format),
	}, nil
}

// Init implements statuslog.Receiver, writing the buffered lines to the
// status file
func (fr *File) Init(name string, lines []statuslog.StatusLine) {
	fr.mu.Lock()
	if fr.cfg.Name == "" {
		fr.cfg.Name = name
	}
	fr.openLocked()
	fr.mu.Unlock()
	_ = fr.LogStatus(context.Background(), lines)
}

// openLocked creates the rotating writers, assuming mu is held
func (fr *File) openLocked() {
	if fr.results != nil {
		return
	}
	if fr.cfg.Name == "" {
		fr.cfg.Name = "statuslog"
	}
	fr.results = fr.newWriter("results")
	fr.snapshots = fr.newWriter("snapshots")
	fr.status = fr.newWriter("status")
}

func (fr *File) newWriter(kind string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(fr.cfg.Directory, fmt.Sprintf("%s.%s.log", fr.cfg.Name, kind)),
		MaxSize:    fr.cfg.MaxSizeMB,
		MaxBackups: fr.cfg.MaxBackups,
		MaxAge:     fr.cfg.MaxAgeDays,
		Compress:   fr.cfg.Compress,
	}
}

// LogString implements statuslog.Receiver
func (fr *File) LogString(_ context.Context, text string) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.openLocked()
	return fr.writeLocked(fr.results, fr.f.FormatString(statuslog.CategoryEvent, text))
}

// LogSnapshot implements statuslog.SnapshotReceiver
func (fr *File) LogSnapshot(_ context.Context, text string) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.openLocked()
	return fr.writeLocked(fr.snapshots, fr.f.FormatString(statuslog.CategorySnapshot, text))
}

// LogStatus implements statuslog.Receiver
func (fr *File) LogStatus(_ context.Context, lines []statuslog.StatusLine) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.openLocked()
	for _, line := range lines {
		data := fr.f.FormatStatus(0, line.Time, line.Severity.String(), line.Location(), line.Message)
		if err := fr.writeLocked(fr.status, data); err != nil {
			return err
		}
	}
	return nil
}

func (fr *File) writeLocked(w *lumberjack.Logger, data []byte) error {
	if fr.f.Kind() == "raw" {
		data = append(data, '\n')
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("receiver: failed to write '%s': %w", w.Filename, err)
	}
	return nil
}

// Rotate closes the current files and starts new ones
func (fr *File) Rotate() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.results == nil {
		return nil
	}
	var errs error
	for _, w := range []*lumberjack.Logger{fr.results, fr.snapshots, fr.status} {
		errs = multierr.Append(errs, w.Rotate())
	}
	return errs
}

// Close closes all files. Later writes reopen them.
func (fr *File) Close() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.results == nil {
		return nil
	}
	var errs error
	for _, w := range []*lumberjack.Logger{fr.results, fr.snapshots, fr.status} {
		errs = multierr.Append(errs, w.Close())
	}
	return errs
}
