// Package watch monitors an inbox directory for incoming message files
// and feeds them through the verification pipeline, the way the mobile
// prototype listened for inbound SMS.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tusharbhayani/SigText/internal/model"
	"github.com/tusharbhayani/SigText/internal/safefile"
	"github.com/tusharbhayani/SigText/internal/verify"
)

// Watcher verifies message files dropped into an inbox directory. Files
// must have a .txt extension; the file body is the raw message text.
type Watcher struct {
	dir      string
	maxBytes int64
	svc      *verify.Service
	logger   *slog.Logger

	// OnResult, when set, is called after each verification. Used by the
	// CLI to print outcomes and by tests to observe progress.
	OnResult func(path string, out *verify.Outcome)
}

// New creates a watcher over dir. maxBytes caps each message file read.
func New(dir string, maxBytes int64, svc *verify.Service, logger *slog.Logger) *Watcher {
	if maxBytes <= 0 {
		maxBytes = 64 * 1024
	}
	return &Watcher{dir: dir, maxBytes: maxBytes, svc: svc, logger: logger}
}

// Run watches the inbox until ctx is cancelled. Files already present
// when Run starts are not reprocessed; only new writes trigger
// verification.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching inbox", "dir", w.dir)

	// Writers may emit several Write events per file; debounce by path.
	seen := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".txt") {
				continue
			}
			if last, ok := seen[ev.Name]; ok && time.Since(last) < time.Second {
				continue
			}
			seen[ev.Name] = time.Now()
			w.process(ctx, ev.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", "error", err)
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	raw, err := safefile.ReadTextMax(path, w.maxBytes)
	if err != nil {
		w.logger.Warn("skipping inbox file", "path", path, "error", err)
		return
	}

	// File name (sans extension) doubles as the sender phone number when
	// it looks like one, e.g. +15551234567.txt
	phone := ""
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if strings.HasPrefix(base, "+") {
		phone = base
	}

	out := w.svc.VerifyMessage(ctx, raw, phone, "", model.MethodSMS)
	w.logger.Info("inbox message verified",
		"path", path,
		"valid", out.Valid,
		"org", out.OrgName,
		"error", out.Error,
	)
	if w.OnResult != nil {
		w.OnResult(path, out)
	}
}
