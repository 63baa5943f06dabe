package importer

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"

	"catalog-service/internal/models"
)

// Archive entries must look like products/<slug>/<N>.<ext> or
// products/<slug>/image-<N>.<ext>; anything else is ignored.
var imagePathPattern = regexp.MustCompile(`^products/([a-z0-9]+(?:-[a-z0-9]+)*)/(?:image-)?(\d+)\.(?i:jpg|jpeg|png|webp|avif|svg)$`)

// ResolveArchiveImages walks a zip archive and groups matching image entries
// by product slug, each group sorted ascending by the numeric order token.
// Unrelated files and unsupported extensions are skipped without error; an
// archive with no matches yields an empty map.
func ResolveArchiveImages(r io.ReaderAt, size int64) (map[string]models.ImageGroup, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	type indexedImage struct {
		order int
		pos   int // encounter order, tie-break for duplicate tokens
		file  models.ImageFile
	}

	matches := make(map[string][]indexedImage)
	pos := 0

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		m := imagePathPattern.FindStringSubmatch(entry.Name)
		if m == nil {
			continue
		}
		slug := m[1]
		order, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read archive entry %s: %w", entry.Name, err)
		}

		matches[slug] = append(matches[slug], indexedImage{
			order: order,
			pos:   pos,
			file:  models.ImageFile{Path: entry.Name, Data: data},
		})
		pos++
	}

	groups := make(map[string]models.ImageGroup, len(matches))
	for slug, imgs := range matches {
		sort.SliceStable(imgs, func(i, j int) bool {
			if imgs[i].order != imgs[j].order {
				return imgs[i].order < imgs[j].order
			}
			return imgs[i].pos < imgs[j].pos
		})
		group := make(models.ImageGroup, 0, len(imgs))
		for _, img := range imgs {
			group = append(group, img.file)
		}
		groups[slug] = group
	}

	return groups, nil
}
