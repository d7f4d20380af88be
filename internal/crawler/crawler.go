package crawler

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"jresolve/internal/extractor"
)

// Crawler scans a directory for Java source files.
type Crawler struct {
	extractor *extractor.Extractor
	ignored   []string
	workers   int
	logger    *log.Entry
	skipped   []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor) *Crawler {
	return &Crawler{
		extractor: ext,
		ignored:   []string{".git", ".gradle", ".mvn", ".idea", "target", "build", "out", "node_modules", "testdata"},
		workers:   runtime.NumCPU(),
		logger:    log.WithField("component", "crawler"),
	}
}

// WithIgnored replaces the directory names that are never entered.
func (c *Crawler) WithIgnored(names ...string) *Crawler {
	c.ignored = names
	return c
}

// WithWorkers bounds how many files are parsed at once.
func (c *Crawler) WithWorkers(n int) *Crawler {
	if n > 0 {
		c.workers = n
	}
	return c
}

// Skipped lists the files of the last scan that failed to parse.
func (c *Crawler) Skipped() []string { return c.skipped }

// ScanProject walks the root directory and parses every .java file.
// Files are parsed concurrently but onUnit sees them in lexical path order,
// so a batch built from a tree is the same on every run. Files that fail
// to parse are logged and skipped.
func (c *Crawler) ScanProject(ctx context.Context, root string, onUnit func(*extractor.SourceUnit)) error {
	c.skipped = nil
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != root && c.isIgnored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasSuffix(d.Name(), ".java") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "walk %s", root)
	}

	units := make([]*extractor.SourceUnit, len(paths))
	failures := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			unit, err := c.extractor.ExtractFromFile(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failures[i] = err
				return nil
			}
			units[i] = unit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "scan canceled")
	}

	for i, unit := range units {
		if unit == nil {
			// Log and continue instead of failing the whole scan
			c.logger.WithError(failures[i]).WithField("file", paths[i]).Warn("skipping unparsable file")
			c.skipped = append(c.skipped, paths[i])
			continue
		}
		onUnit(unit)
	}
	c.logger.WithFields(log.Fields{
		"files":   len(paths),
		"skipped": len(c.skipped),
	}).Debug("scan complete")
	return nil
}

func (c *Crawler) isIgnored(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}
