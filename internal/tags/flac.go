package tags

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// FLACStore rewrites ReplayGain Vorbis comments in FLAC files.
type FLACStore struct{}

// UpdateTags rewrites the fields that differ between prev and updated.
func (FLACStore) UpdateTags(prev, updated MediaInfo) error {
	if !strings.EqualFold(filepath.Ext(updated.Path), ".flac") {
		return fmt.Errorf("%w: %s", ErrUnsupportedFile, updated.Path)
	}

	fields := changedFields(prev, updated)
	if len(fields) == 0 {
		return nil
	}

	f, err := flac.ParseFile(updated.Path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	idx := -1
	var cmt *flacvorbis.MetaDataBlockVorbisComment
	for i, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			cmt, err = flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				return fmt.Errorf("failed to parse vorbis comment: %w", err)
			}
			idx = i
			break
		}
	}
	if cmt == nil {
		cmt = flacvorbis.New()
	}

	if err := setComments(cmt, fields); err != nil {
		return err
	}

	block := cmt.Marshal()
	if idx >= 0 {
		f.Meta[idx] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if err := f.Save(updated.Path); err != nil {
		return fmt.Errorf("failed to save FLAC file with metadata: %w", err)
	}
	return nil
}

// setComments replaces every comment named in fields, matching names
// case-insensitively. Fields are added in sorted order.
func setComments(cmt *flacvorbis.MetaDataBlockVorbisComment, fields map[string]string) error {
	kept := cmt.Comments[:0]
	for _, c := range cmt.Comments {
		name, _, _ := strings.Cut(c, "=")
		if _, replace := fields[strings.ToUpper(name)]; !replace {
			kept = append(kept, c)
		}
	}
	cmt.Comments = kept

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := cmt.Add(name, fields[name]); err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
	}
	return nil
}
