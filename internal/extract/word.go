package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// docxText returns body paragraphs (blank ones skipped) followed by one line
// per table row with its non-blank cells joined by " | ".
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	body, err := readZipEntry(zr.File, "word/document.xml")
	if err != nil {
		return "", err
	}

	paras, rows, err := walkDocx(body)
	if err != nil {
		return "", err
	}
	return strings.Join(append(paras, rows...), "\n\n"), nil
}

func readZipEntry(files []*zip.File, name string) ([]byte, error) {
	for _, f := range files {
		if f == nil || !strings.EqualFold(f.Name, name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("docx entry not found: %s", name)
}

func walkDocx(body []byte) (paras, rows []string, err error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		tblDepth int
		inText   bool
		para     strings.Builder
		cell     strings.Builder
		row      []string
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "tr":
				if tblDepth == 1 {
					row = row[:0]
				}
			case "tc":
				if tblDepth == 1 {
					cell.Reset()
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte(' ')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				txt := para.String()
				if tblDepth == 0 {
					if strings.TrimSpace(txt) != "" {
						paras = append(paras, txt)
					}
					continue
				}
				if strings.TrimSpace(txt) == "" {
					continue
				}
				if cell.Len() > 0 {
					cell.WriteByte('\n')
				}
				cell.WriteString(txt)
			case "tc":
				if tblDepth == 1 {
					if c := strings.TrimSpace(cell.String()); c != "" {
						row = append(row, c)
					}
				}
			case "tr":
				if tblDepth == 1 && len(row) > 0 {
					rows = append(rows, strings.Join(row, " | "))
				}
			case "tbl":
				tblDepth--
			}
		}
	}
	return paras, rows, nil
}
