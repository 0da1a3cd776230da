package tags

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
)

const libraryKeyPrefix = "media/"

// Library keeps the last written MediaInfo of every analysed path in a
// badger database.
type Library struct {
	db *badger.DB
}

// OpenLibrary opens (or creates) the database in dir.
func OpenLibrary(dir string, logger zerolog.Logger) (*Library, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger})
	return openLibrary(opts)
}

func openLibrary(opts badger.Options) (*Library, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	return &Library{db: db}, nil
}

func libraryKey(path string) []byte {
	return []byte(libraryKeyPrefix + path)
}

// UpdateTags records updated, replacing any earlier record for the path.
func (l *Library) UpdateTags(_, updated MediaInfo) error {
	val, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", updated.Path, err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(libraryKey(updated.Path), val)
	})
}

// Lookup returns the stored record for path. ok is false when the path
// has never been recorded.
func (l *Library) Lookup(path string) (info MediaInfo, ok bool, err error) {
	err = l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(libraryKey(path))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(val, &info)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return MediaInfo{}, false, nil
	}
	if err != nil {
		return MediaInfo{}, false, fmt.Errorf("failed to look up %s: %w", path, err)
	}
	return info, true, nil
}

// Overlay returns a reader that prefers recorded loudness values over
// those read from the file. The album name comes from the file when it
// can be read.
func (l *Library) Overlay(read func(path string) (Existing, error)) func(path string) (Existing, error) {
	return func(path string) (Existing, error) {
		e, readErr := read(path)

		info, ok, err := l.Lookup(path)
		if err != nil {
			return e, errors.Join(readErr, err)
		}
		if !ok {
			return e, readErr
		}

		if readErr != nil {
			e.Album = info.Album
		}
		e.TrackGain, e.TrackPeak = info.TrackGain, info.TrackPeak
		e.AlbumGain, e.AlbumPeak = info.AlbumGain, info.AlbumPeak
		return e, nil
	}
}

// Close flushes and closes the database.
func (l *Library) Close() error {
	return l.db.Close()
}

// badgerLogger routes badger's internal logging to zerolog
type badgerLogger struct {
	log zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.log.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.log.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.log.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.log.Trace().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
