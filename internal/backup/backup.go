// Package backup produces compressed postgres dumps and rotates old archives.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/bekzod-dev/botforge/pkg/config"
)

const (
	filePrefix = "botforge_"
	fileSuffix = ".sql.gz"

	defaultMaxAge   = 7 * 24 * time.Hour
	defaultMaxCount = 10
)

// Runner dumps the database with pg_dump, gzips the output and prunes
// archives beyond the retention window.
type Runner struct {
	db       config.DatabaseConfig
	dir      string
	maxAge   time.Duration
	maxCount int
	log      *slog.Logger
}

// NewRunner builds a Runner from the backup section of the configuration.
func NewRunner(db config.DatabaseConfig, cfg config.BackupConfig, log *slog.Logger) (*Runner, error) {
	if log == nil {
		log = slog.Default()
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "backups"
	}

	maxAge := defaultMaxAge
	if cfg.MaxAge != "" {
		parsed, err := time.ParseDuration(cfg.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("parse backup max age: %w", err)
		}
		maxAge = parsed
	}

	maxCount := cfg.MaxCount
	if maxCount <= 0 {
		maxCount = defaultMaxCount
	}

	return &Runner{
		db:       db,
		dir:      dir,
		maxAge:   maxAge,
		maxCount: maxCount,
		log:      log,
	}, nil
}

// Run produces one archive and applies retention. It returns the archive path.
func (r *Runner) Run(ctx context.Context) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := filePrefix + time.Now().UTC().Format("20060102_150405") + fileSuffix
	path := filepath.Join(r.dir, name)

	if err := r.dump(ctx, path); err != nil {
		// A partial archive is useless, drop it.
		_ = os.Remove(path)
		return "", err
	}

	removed, err := Prune(r.dir, r.maxAge, r.maxCount, time.Now())
	if err != nil {
		r.log.Warn("backup rotation failed", slog.Any("error", err))
	} else if removed > 0 {
		r.log.Info("pruned old backups", slog.Int("removed", removed))
	}

	r.log.Info("backup written", slog.String("path", path))
	return path, nil
}

func (r *Runner) dump(ctx context.Context, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)

	cmd := exec.CommandContext(ctx, "pg_dump",
		"--host", r.db.Host,
		"--port", r.db.Port,
		"--username", r.db.User,
		"--dbname", r.db.Name,
		"--no-password",
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+r.db.Password)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start pg_dump: %w", err)
	}

	if _, err := io.Copy(gz, stdout); err != nil {
		_ = cmd.Wait()
		return fmt.Errorf("compress dump: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("pg_dump: %w", err)
	}

	if err := gz.Close(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}

	return out.Sync()
}

// Prune removes archives older than maxAge and keeps at most maxCount of the
// newest remaining ones. It returns the number of removed files.
func Prune(dir string, maxAge time.Duration, maxCount int, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read backup dir: %w", err)
	}

	type archive struct {
		path    string
		modTime time.Time
	}

	archives := make([]archive, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		archives = append(archives, archive{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	// Newest first, so the survivors are always the most recent dumps.
	sort.Slice(archives, func(i, j int) bool {
		return archives[i].modTime.After(archives[j].modTime)
	})

	removed := 0
	for i, a := range archives {
		expired := maxAge > 0 && now.Sub(a.modTime) > maxAge
		overflow := maxCount > 0 && i >= maxCount
		if !expired && !overflow {
			continue
		}
		if err := os.Remove(a.path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", a.path, err)
		}
		removed++
	}

	return removed, nil
}
