package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"

	"pdfchat/internal/models"
)

// Extract reads the file and returns its plain text plus a page count
// (pages for PDF, slides for PPTX, sheets for spreadsheets, 1 otherwise).
// A file with no extractable text returns ErrExtractionEmpty; the caller
// stores the document with zero chunks rather than failing the upload.
func Extract(filePath string) (string, int, error) {
	var (
		text  string
		pages int
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".pdf":
		text, pages, err = extractPDF(filePath)
	case ".docx":
		text, pages, err = extractDOCX(filePath)
	case ".pptx":
		text, pages, err = extractPPTX(filePath)
	case ".xlsx":
		text, pages, err = extractXLSX(filePath)
	case ".ods":
		text, pages, err = extractODS(filePath)
	case ".md", ".markdown":
		text, pages, err = extractMarkdown(filePath)
	case ".txt":
		text, pages, err = extractText(filePath)
	default:
		return "", 0, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return "", 0, err
	}

	text = Clean(text)
	if text == "" {
		return "", pages, fmt.Errorf("%w: %s", models.ErrExtractionEmpty, filepath.Base(filePath))
	}
	return text, pages, nil
}

func extractPDF(filePath string) (string, int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", 0, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, err
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}
	return sb.String(), numPages, nil
}

func extractDOCX(filePath string) (string, int, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", 0, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	return extractTagText(content, "<w:t", "</w:t>"), 1, nil
}

func extractPPTX(filePath string) (string, int, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var sb strings.Builder
	slides := 0
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slides++
		sb.WriteString(extractTagText(string(data), "<a:t", "</a:t>"))
		sb.WriteString("\n\n")
	}
	if slides == 0 {
		slides = 1
	}
	return sb.String(), slides, nil
}

func extractXLSX(filePath string) (string, int, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	for _, sheet := range f.Sheets {
		sb.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				sb.WriteString(cell.String() + "\t")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	pages := len(f.Sheets)
	if pages == 0 {
		pages = 1
	}
	return sb.String(), pages, nil
}

func extractODS(filePath string) (string, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var sb strings.Builder
	sheets := f.GetSheetList()
	for _, sheetName := range sheets {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	pages := len(sheets)
	if pages == 0 {
		pages = 1
	}
	return sb.String(), pages, nil
}

func extractText(filePath string) (string, int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", 0, err
	}
	return string(data), 1, nil
}

func extractMarkdown(filePath string) (string, int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", 0, err
	}
	return MarkdownToText(data), 1, nil
}

// MarkdownToText parses markdown and returns its plain text, dropping
// formatting so headings and emphasis do not pollute similarity search.
func MarkdownToText(src []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(gmtext.NewReader(src))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				sb.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock {
			sb.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// Clean normalizes extracted text: collapses whitespace runs and drops
// non-printable characters while keeping line structure.
var (
	multiNewline = regexp.MustCompile(`\n{2,}`)
	multiSpace   = regexp.MustCompile(`[ \t]{2,}`)
)

func Clean(text string) string {
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			return r
		}
		return -1
	}, text)
	text = multiNewline.ReplaceAllString(text, "\n")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// extractTagText pulls the text runs out of Office Open XML markup, e.g.
// <w:t> for DOCX or <a:t> for PPTX slides.
func extractTagText(xmlContent, openTag, closeTag string) string {
	var sb strings.Builder
	parts := strings.Split(xmlContent, openTag)
	for i, part := range parts {
		if i == 0 {
			continue
		}
		// a real text run is "<w:t>" or "<w:t attr=...>"; skip lookalikes
		// such as <w:tbl>
		if part != "" && part[0] != '>' && part[0] != ' ' {
			continue
		}
		gt := strings.Index(part, ">")
		if gt < 0 {
			continue
		}
		part = part[gt+1:]
		if end := strings.Index(part, closeTag); end >= 0 {
			sb.WriteString(part[:end] + " ")
		}
	}
	return sb.String()
}
