package vectorstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// chromem names collection directories by an 8 hex digit hash and stores
// collection metadata in 00000000.gob.
var collectionDirPattern = regexp.MustCompile(`^[a-f0-9]{8}$`)

const (
	collectionMetaFile = "00000000.gob"
	quarantineDir      = ".quarantine"
)

// openChromemDB opens a persistent chromem DB. A collection directory that
// lost its metadata file (an interrupted build) makes chromem refuse to
// load; such directories are moved to .quarantine and the load is retried.
// The index is rebuilt from the message source anyway, so nothing of value
// is lost.
func openChromemDB(path string, compress bool, logger *zap.Logger) (*chromem.DB, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err == nil {
		return db, nil
	}
	if !strings.Contains(err.Error(), "collection metadata file not found") {
		return nil, err
	}

	broken, findErr := findBrokenCollections(path)
	if findErr != nil || len(broken) == 0 {
		return nil, err
	}

	qdir := filepath.Join(path, quarantineDir)
	if mkErr := os.MkdirAll(qdir, 0o755); mkErr != nil {
		return nil, fmt.Errorf("creating quarantine dir: %w", mkErr)
	}
	for _, name := range broken {
		logger.Warn("quarantining chromem collection without metadata", zap.String("dir", name))
		if mvErr := os.Rename(filepath.Join(path, name), filepath.Join(qdir, name)); mvErr != nil {
			logger.Error("quarantine failed", zap.String("dir", name), zap.Error(mvErr))
		}
	}

	db, err = chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("loading chromem DB after quarantine: %w", err)
	}
	logger.Info("chromem DB loaded after quarantine", zap.Int("quarantined", len(broken)))
	return db, nil
}

// findBrokenCollections lists collection directories that hold document
// files but no metadata file.
func findBrokenCollections(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var broken []string
	for _, e := range entries {
		if !e.IsDir() || !collectionDirPattern.MatchString(e.Name()) {
			continue
		}
		dir := filepath.Join(path, e.Name())
		if _, err := os.Stat(filepath.Join(dir, collectionMetaFile)); !os.IsNotExist(err) {
			continue
		}
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if !f.IsDir() && strings.Contains(f.Name(), ".gob") {
				broken = append(broken, e.Name())
				break
			}
		}
	}
	return broken, nil
}
