package aggregate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
	"github.com/dq-tools/aid-atlas/pkg/store/xmlfile"
)

// BuildDirectory walks a data directory laid out as one subdirectory per
// publisher, each holding IATI XML files, and builds the full hierarchy. A
// file that cannot be decoded at all is logged and skipped; it never aborts
// the corpus.
func (b *Builder) BuildDirectory(ctx context.Context, dataDir string) (*CorpusStats, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	var publishers []*PublisherStats
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := b.buildPublisherDir(ctx, dataDir, entry.Name())
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, p)
	}
	sort.Slice(publishers, func(i, j int) bool { return publishers[i].Name < publishers[j].Name })
	return b.BuildCorpus(publishers)
}

func (b *Builder) buildPublisherDir(ctx context.Context, dataDir, publisher string) (*PublisherStats, error) {
	dir := filepath.Join(dataDir, publisher)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading publisher directory %s: %w", publisher, err)
	}

	var files []*FileStats
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xml") {
			continue
		}
		key := domain.GroupKey{Publisher: publisher, File: entry.Name()}
		doc, err := xmlfile.Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).
				Str("publisher", publisher).Str("file", entry.Name()).
				Msg("skipping undecodable file")
			continue
		}
		f, err := b.BuildFile(ctx, key, doc.Records)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return b.BuildPublisher(publisher, files)
}
