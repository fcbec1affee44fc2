package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

var snapshotExtensions = []string{".db", ".sqlite", ".sqlite3"}

// SnapshotDownloader fetches transaction log snapshots into a local directory.
type SnapshotDownloader struct {
	client  ObjectStorage
	destDir string
}

func NewSnapshotDownloader(client ObjectStorage, destDir string) (*SnapshotDownloader, error) {
	if destDir == "" {
		destDir = "./data/snapshots"
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure download dir %s: %w", destDir, err)
	}

	return &SnapshotDownloader{client: client, destDir: destDir}, nil
}

// Download fetches the object named by override (resolved under prefix), or every snapshot under
// prefix when override is empty. Local paths are returned sorted.
func (d *SnapshotDownloader) Download(ctx context.Context, prefix, override string) ([]string, error) {
	var keys []string

	if override != "" {
		keys = []string{ResolveObjectKey(prefix, override)}
	} else {
		listPrefix := strings.TrimSpace(prefix)
		objects, err := d.client.ListObjects(ctx, listPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects for prefix %s: %w", listPrefix, err)
		}
		for _, obj := range objects {
			if isSnapshot(obj.Key) {
				keys = append(keys, obj.Key)
			}
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no snapshot files found for prefix %s", prefix)
	}

	localPaths := make([]string, 0, len(keys))
	for _, key := range keys {
		localPath := filepath.Join(d.destDir, objectRelativePath(prefix, key))
		if err := d.client.DownloadObject(ctx, key, localPath); err != nil {
			return nil, err
		}
		log.Info().Str("key", key).Str("path", localPath).Msg("snapshot downloaded")
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	return localPaths, nil
}

// Latest picks the lexically greatest path, which is the newest for date-stamped snapshot names.
func Latest(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	return sorted[len(sorted)-1]
}

func isSnapshot(key string) bool {
	lower := strings.ToLower(key)
	for _, ext := range snapshotExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ResolveObjectKey joins override under prefix unless it already starts with it.
func ResolveObjectKey(prefix, override string) string {
	if override == "" {
		return strings.TrimSpace(prefix)
	}
	if prefix == "" {
		return strings.TrimPrefix(override, "/")
	}

	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	overrideTrimmed := strings.TrimPrefix(strings.TrimSpace(override), "/")

	if strings.HasPrefix(overrideTrimmed, prefixTrimmed) {
		return overrideTrimmed
	}
	return fmt.Sprintf("%s/%s", prefixTrimmed, overrideTrimmed)
}

func objectRelativePath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	rel := strings.TrimPrefix(key, prefixTrimmed+"/")
	if rel == "" {
		return filepath.Base(key)
	}
	return rel
}
