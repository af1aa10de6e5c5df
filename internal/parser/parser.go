// Package parser extracts plain text from uploaded documents. Each format
// yields labeled regions (pages, sheets, slides, markdown sections) so that
// chunks can cite where in the source they came from. The rest of the
// pipeline never touches binary document formats.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"document-qa/internal/models"
)

// Parse extracts text and source labels from the file at filePath.
func Parse(filePath string) (models.Document, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return parsePDF(filePath)
	case ".docx":
		return parseDOCX(filePath)
	case ".pptx":
		return parsePPTX(filePath)
	case ".xlsx":
		return parseXLSX(filePath)
	case ".ods":
		return parseODS(filePath)
	case ".md", ".markdown":
		return parseMarkdown(filePath)
	case ".txt":
		return parseText(filePath)
	default:
		return models.Document{}, fmt.Errorf("unsupported file format: %s", ext)
	}
}

// regionBuilder assembles the document text region by region, recording
// byte offsets as it goes. Regions are separated by blank lines.
type regionBuilder struct {
	name    string
	text    strings.Builder
	regions []models.Region
}

func newRegionBuilder(filePath string) *regionBuilder {
	return &regionBuilder{name: filepath.Base(filePath)}
}

func (b *regionBuilder) add(label, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	start := b.text.Len()
	b.text.WriteString(content)
	b.regions = append(b.regions, models.Region{Start: start, End: b.text.Len(), Label: label})
}

func (b *regionBuilder) document() models.Document {
	return models.Document{Name: b.name, Text: b.text.String(), Regions: b.regions}
}

func parsePDF(filePath string) (models.Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return models.Document{}, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return models.Document{}, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return models.Document{}, err
	}

	b := newRegionBuilder(filePath)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return models.Document{}, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		b.add(fmt.Sprintf("page %d", i), pageText)
	}
	return b.document(), nil
}

func parseDOCX(filePath string) (models.Document, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return models.Document{}, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	b := newRegionBuilder(filePath)
	b.add("document", extractTagText(content, "<w:t", "</w:t>"))
	return b.document(), nil
}

func parseXLSX(filePath string) (models.Document, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return models.Document{}, err
	}

	b := newRegionBuilder(filePath)
	for _, sheet := range f.Sheets {
		var text strings.Builder
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		b.add("sheet: "+sheet.Name, text.String())
	}
	return b.document(), nil
}

func parseODS(filePath string) (models.Document, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return models.Document{}, err
	}
	defer f.Close()

	b := newRegionBuilder(filePath)
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		b.add("sheet: "+sheetName, text.String())
	}
	return b.document(), nil
}

func parseText(filePath string) (models.Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return models.Document{}, err
	}
	b := newRegionBuilder(filePath)
	b.add("document", strings.ReplaceAll(string(data), "\r\n", "\n"))
	return b.document(), nil
}

// extractTagText pulls the text content out of repeated XML tags, e.g.
// <w:t> runs in a DOCX body or <a:t> runs in a PPTX slide.
func extractTagText(xmlContent, openTag, closeTag string) string {
	var text strings.Builder
	for i, part := range strings.Split(xmlContent, openTag) {
		if i == 0 {
			continue
		}
		// skip past the tag's attributes
		gt := strings.Index(part, ">")
		if gt < 0 {
			continue
		}
		part = part[gt+1:]
		if end := strings.Index(part, closeTag); end >= 0 {
			text.WriteString(part[:end] + " ")
		}
	}
	return text.String()
}
