package source

import (
	"archive/zip"
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/richardbrinkman/plagiarism/internal/convert"
	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
	"github.com/richardbrinkman/plagiarism/internal/logging"
	"github.com/richardbrinkman/plagiarism/internal/sheet"
)

// ArchiveUnit is the single unit of an archive source.
const ArchiveUnit = "similarity"

// Roster headers of an archive source.
const (
	ArchiveKeyName  = "student_number"
	ArchiveNameAttr = "name"
)

var (
	submissionRe = regexp.MustCompile(`^.+_(\d+)_(?:attempt|poging)_\d{4}(?:-\d\d){5}_(.+)$`)
	metadataRe   = regexp.MustCompile(`^.+_(?:attempt|poging)_\d{4}(?:-\d\d){5}\.txt$`)
	rosterLineRe = regexp.MustCompile(`^(?:Name|Naam): (.+) \((\d+)\)$`)
)

type submission struct {
	file     string
	student  string
	original string
}

// archiveSource compares every submission in a directory with every other
// one. Text is converted lazily and memoized for the run.
type archiveSource struct {
	dir     string
	cleanup string
	files   []submission
	roster  *sheet.Roster
	cache   *convert.Cache
}

// openArchive scans dir. cleanup, when set, is removed by Close.
func openArchive(ctx context.Context, dir, cleanup string, opts Options) (*archiveSource, error) {
	names, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.InputError{Path: dir, Cause: err}
	}

	src := &archiveSource{
		dir:     dir,
		cleanup: cleanup,
		roster:  sheet.NewRoster(ArchiveKeyName, ArchiveNameAttr),
		cache:   convert.NewCache(opts.Converter),
	}

	var metadata []string
	for _, de := range names {
		name := de.Name()
		if !de.Type().IsRegular() {
			continue
		}
		if metadataRe.MatchString(name) {
			metadata = append(metadata, name)
			continue
		}
		m := submissionRe.FindStringSubmatch(name)
		if m == nil {
			opts.Logger.Debug("skipping file that is not a submission", logging.String("file", name))
			continue
		}
		src.files = append(src.files, submission{file: name, student: m[1], original: m[2]})
	}
	sort.Slice(src.files, func(i, j int) bool { return src.files[i].file < src.files[j].file })
	sort.Strings(metadata)

	for _, name := range metadata {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := src.readRoster(filepath.Join(dir, name), opts.Logger); err != nil {
			return nil, apperrors.InputError{Path: filepath.Join(dir, name), Cause: err}
		}
	}
	return src, nil
}

// readRoster adds every "Name: <name> (<number>)" line of a metadata file.
// Other lines are skipped.
func (s *archiveSource) readRoster(path string, log logging.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	text, err := convert.DecodeText(raw)
	if err != nil {
		return err
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		l := strings.TrimRight(sc.Text(), "\r \t")
		m := rosterLineRe.FindStringSubmatch(l)
		if m == nil {
			if l != "" {
				log.Debug("skipping metadata line", logging.Err(apperrors.MetadataParseError{File: filepath.Base(path), Line: line, Text: l}))
			}
			continue
		}
		s.roster.Add(m[2], m[1])
	}
	return sc.Err()
}

func (s *archiveSource) Kind() Kind                { return KindArchive }
func (s *archiveSource) Mode() Mode                { return WholeCorpus }
func (s *archiveSource) UnitIDs() []string         { return []string{ArchiveUnit} }
func (s *archiveSource) StudentTab() *sheet.Roster { return s.roster }

// Jobs yields the one corpus-wide job. Entries are the submissions in file
// name order.
func (s *archiveSource) Jobs() iter.Seq[Job] {
	return func(yield func(Job) bool) {
		entries := make([]Entry, len(s.files))
		for i, f := range s.files {
			path := filepath.Join(s.dir, f.file)
			entries[i] = Entry{
				Key:       f.file,
				StudentID: f.student,
				Name:      f.student + "_" + f.original,
				Label:     fmt.Sprintf("%s (%s_%s)", s.displayName(f.student), f.student, f.original),
				Load: func(ctx context.Context) (string, error) {
					return s.cache.Convert(ctx, path)
				},
			}
		}
		yield(Job{UnitID: ArchiveUnit, Entries: entries})
	}
}

func (s *archiveSource) displayName(student string) string {
	if s.roster.Has(student) {
		return s.roster.Display(student)
	}
	return student
}

// AverageTab averages, for every student pair, all similarity cells
// between a submission of the first and a submission of the second.
// Submissions of one student are usually adjacent, so the references are
// grouped into rectangular ranges.
func (s *archiveSource) AverageTab(sheetNames []string) sheet.FormulaTable {
	keys := s.roster.Keys()
	ft := sheet.NewFormulaTable(keys, s.roster.Labels())
	if len(sheetNames) == 0 {
		return ft
	}
	name := sheetNames[0]

	byStudent := make(map[string][]int)
	for i, f := range s.files {
		byStudent[f.student] = append(byStudent[f.student], i)
	}

	for a, ka := range keys {
		rowRuns := sheet.Runs(byStudent[ka])
		for b, kb := range keys {
			if a == b {
				continue
			}
			colRuns := sheet.Runs(byStudent[kb])
			var refs []string
			for _, r := range rowRuns {
				for _, c := range colRuns {
					refs = append(refs, sheet.QuoteSheet(name)+"!"+sheet.RangeName(r[0], c[0], r[1], c[1]))
				}
			}
			ft.Cells[a][b] = sheet.MeanFormula(refs)
		}
	}
	return ft
}

// Close removes an extracted archive and drops memoized conversions.
func (s *archiveSource) Close() error {
	s.cache.Reset()
	if s.cleanup == "" {
		return nil
	}
	return os.RemoveAll(s.cleanup)
}

// extractZip unpacks path into a fresh temporary directory. Entries that
// would escape the directory are rejected.
func extractZip(path, tempDir string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", apperrors.InputError{Path: path, Cause: err}
	}
	defer zr.Close()

	dir, err := os.MkdirTemp(tempDir, "plagiarism-")
	if err != nil {
		return "", apperrors.InputError{Path: path, Cause: err}
	}
	fail := func(err error) (string, error) {
		_ = os.RemoveAll(dir)
		return "", apperrors.InputError{Path: path, Cause: err}
	}

	for _, f := range zr.File {
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fail(fmt.Errorf("illegal path in archive: %s", f.Name))
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fail(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fail(err)
		}
		if err := extractFile(f, target); err != nil {
			return fail(err)
		}
	}
	return dir, nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// contentRoot descends into a lone top-level directory, as produced by
// archives that wrap their files in a folder.
func contentRoot(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return dir
	}
	return filepath.Join(dir, entries[0].Name())
}
