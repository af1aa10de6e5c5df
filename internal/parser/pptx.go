package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strings"

	"document-qa/internal/models"
)

func parsePPTX(filePath string) (models.Document, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return models.Document{}, err
	}
	defer f.Close()

	names := make([]string, 0, len(f.File))
	byName := make(map[string]*zip.File, len(f.File))
	for _, file := range f.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") {
			names = append(names, file.Name)
			byName[file.Name] = file
		}
	}
	sort.Strings(names)

	b := newRegionBuilder(filePath)
	for i, name := range names {
		rc, err := byName[name].Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		b.add(fmt.Sprintf("slide %d", i+1), extractTagText(string(data), "<a:t", "</a:t>"))
	}
	return b.document(), nil
}
