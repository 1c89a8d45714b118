package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadText returns the content of a text file. Content that is not valid
// UTF-8 is decoded as Windows-1252, the encoding legacy exports use.
func ReadText(_ context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return DecodeText(raw)
}

// DecodeText converts raw bytes to a UTF-8 string, stripping a BOM.
func DecodeText(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode windows-1252: %w", err)
	}
	return string(decoded), nil
}

// ReadPDF extracts the plain text of every page.
func ReadPDF(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", errors.New("no extractable text found in pdf")
	}
	return b.String(), nil
}

// ReadDOCX extracts paragraph text from word/document.xml.
func ReadDOCX(_ context.Context, path string) (string, error) {
	data, err := readZipMember(path, "word/document.xml")
	if err != nil {
		return "", err
	}
	return walkXMLText(data, set("t"), set("p"), map[string]string{"tab": "\t", "br": "\n"})
}

// ReadODT extracts paragraph and heading text from content.xml.
func ReadODT(_ context.Context, path string) (string, error) {
	data, err := readZipMember(path, "content.xml")
	if err != nil {
		return "", err
	}
	return walkXMLText(data, set("p", "h"), set("p", "h"), map[string]string{"s": " ", "tab": "\t", "line-break": "\n"})
}

func readZipMember(path, member string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != member {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", member, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", member, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", member)
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// walkXMLText collects character data found inside any element named in
// textElems. Paragraph elements start a new line; inline elements emit
// their separator in place.
func walkXMLText(data []byte, textElems, paragraphs map[string]bool, inline map[string]string) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var b strings.Builder
	depth := 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if paragraphs[name] && b.Len() > 0 {
				b.WriteString("\n")
			}
			if sep, ok := inline[name]; ok && b.Len() > 0 {
				b.WriteString(sep)
			}
			if textElems[name] {
				depth++
			}
		case xml.EndElement:
			if textElems[t.Name.Local] && depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// ReadSQLite renders a database as a textual dump: schema statements
// followed by one INSERT per row, tables in schema order.
func ReadSQLite(ctx context.Context, path string) (string, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT type, name, sql FROM sqlite_master WHERE sql IS NOT NULL ORDER BY rowid`)
	if err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}
	type object struct{ kind, name, ddl string }
	var objects []object
	for rows.Next() {
		var o object
		if err := rows.Scan(&o.kind, &o.name, &o.ddl); err != nil {
			rows.Close()
			return "", fmt.Errorf("read schema: %w", err)
		}
		objects = append(objects, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}

	var b strings.Builder
	b.WriteString("BEGIN TRANSACTION;\n")
	for _, o := range objects {
		b.WriteString(o.ddl)
		b.WriteString(";\n")
		if o.kind != "table" || strings.HasPrefix(o.name, "sqlite_") {
			continue
		}
		if err := dumpTable(ctx, db, &b, o.name); err != nil {
			return "", err
		}
	}
	b.WriteString("COMMIT;\n")
	return b.String(), nil
}

func dumpTable(ctx context.Context, db *sql.DB, b *strings.Builder, table string) error {
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		return fmt.Errorf("dump %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("dump %s: %w", table, err)
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("dump %s: %w", table, err)
		}
		literals := make([]string, len(values))
		for i, v := range values {
			literals[i] = sqlLiteral(v)
		}
		fmt.Fprintf(b, "INSERT INTO %s VALUES(%s);\n", quoted, strings.Join(literals, ","))
	}
	return rows.Err()
}

func sqlLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(x)) + "'"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(x), "'", "''") + "'"
	}
}
