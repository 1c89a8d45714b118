package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/progress"
	"github.com/richardbrinkman/plagiarism/internal/source"
)

const questionCSV = "Studentnummer;Voornaam;Vraag;Vraagtype;Antwoord;Gekozen alternatief;Ongeldige pogingen\n" +
	"1;Ada;Q1;open;The cat sat on the mat;;0\n" +
	"2;Alan;Q1;open;The cat sat on a mat;;0\n" +
	"3;Grace;Q1;open;Something else entirely;;0\n" +
	"1;Ada;Q2;meerkeuze;;B;0\n" +
	"2;Alan;Q2;meerkeuze;;B;0\n" +
	"3;Grace;Q2;meerkeuze;;C;0\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(Config{
		UploadDir:  t.TempDir(),
		Keepalive:  time.Second,
		SessionTTL: time.Hour,
		Workers:    2,
		Columns:    source.DefaultColumns(),
	}, newTestLogger())
	t.Cleanup(s.Close)
	return s
}

func upload(t *testing.T, s *Server, field, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/detect", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return rec
}

// readEvents parses the data records of an event stream.
func readEvents(t *testing.T, body string) []progress.Event {
	t.Helper()
	var events []progress.Event
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		require.True(t, strings.HasPrefix(line, "data: "), "unexpected record %q", line)
		var e progress.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		events = append(events, e)
	}
	return events
}

func TestDetectFlow(t *testing.T) {
	s := newTestServer(t)

	rec := upload(t, s, "input_file", "export.csv", questionCSV)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{"Q1", "Q2"}, resp.Units)
	assert.Equal(t, "/progress/"+resp.ID, resp.Progress)
	assert.Equal(t, "/report/"+resp.ID, resp.Report)

	stream := get(s, resp.Progress)
	require.Equal(t, http.StatusOK, stream.Code)
	assert.Equal(t, "text/event-stream", stream.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", stream.Header().Get("Cache-Control"))

	events := readEvents(t, stream.Body.String())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, progress.StatusCompleted, last.Status)

	finished := 0
	for _, e := range events[:len(events)-1] {
		assert.NotEqual(t, progress.StatusCompleted, e.Status, "completed must be the last event")
		if e.Status == progress.StatusFinished {
			finished++
		}
	}
	assert.Equal(t, 2, finished)

	report := get(s, resp.Report)
	require.Equal(t, http.StatusOK, report.Code, report.Body.String())
	assert.Equal(t, xlsxContentType, report.Header().Get("Content-Type"))
	assert.Contains(t, report.Header().Get("Content-Disposition"), ReportName)
	assert.True(t, bytes.HasPrefix(report.Body.Bytes(), []byte("PK")), "the report should be a zip container")

	again := get(s, resp.Progress)
	assert.Equal(t, http.StatusGone, again.Code, "the stream is released once completed was delivered")
}

func TestDetectErrors(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing file", func(t *testing.T) {
		rec := upload(t, s, "other", "export.csv", questionCSV)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported content", func(t *testing.T) {
		rec := upload(t, s, "input_file", "unknown.csv", "a,b,c\n1,2,3\n")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)

		entries, err := os.ReadDir(s.cfg.UploadDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "rejected uploads leave nothing behind")
	})

	t.Run("too large", func(t *testing.T) {
		small := newTestServer(t)
		small.cfg.Security.MaxUploadBytes = 16
		rec := upload(t, small, "input_file", "export.csv", questionCSV)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := get(s, "/detect")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/progress/nope", "/report/nope"} {
		rec := get(s, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestReportNotReady(t *testing.T) {
	s := newTestServer(t)
	s.sessions.add(&session{id: "pending", hub: progress.NewHub()})

	rec := get(s, "/report/pending")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReportFailedRun(t *testing.T) {
	s := newTestServer(t)
	sess := &session{id: "failed"}
	sess.finish(orchestration.Summary{}, os.ErrPermission, time.Now())
	s.sessions.add(sess)

	rec := get(s, "/report/failed")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "detection failed")
}

func TestProgressKeepalive(t *testing.T) {
	s := New(Config{UploadDir: t.TempDir(), Keepalive: 10 * time.Millisecond}, newTestLogger())
	t.Cleanup(s.Close)

	hub := progress.NewHub()
	s.sessions.add(&session{id: "slow", hub: hub})
	go func() {
		time.Sleep(50 * time.Millisecond)
		hub.Publish(progress.Event{Status: progress.StatusCompleted})
		hub.Close()
	}()

	events := readEvents(t, get(s, "/progress/slow").Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, progress.StatusKeepalive, events[0].Status)
	assert.Equal(t, progress.StatusCompleted, events[len(events)-1].Status)
}

func TestProgressAbnormalEnd(t *testing.T) {
	s := newTestServer(t)
	hub := progress.NewHub()
	hub.Publish(progress.Event{Status: progress.StatusProcessing, UnitID: "Q1", Job: 1})
	hub.Close()
	s.sessions.add(&session{id: "aborted", hub: hub})

	events := readEvents(t, get(s, "/progress/aborted").Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, progress.StatusProcessing, events[0].Status)

	rec := get(s, "/progress/aborted")
	assert.Equal(t, http.StatusOK, rec.Code, "a stream without completed is not released")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := get(s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestSessionSweep(t *testing.T) {
	st := newSessionStore()
	dir := t.TempDir()
	oldDir := filepath.Join(dir, "old")
	require.NoError(t, os.Mkdir(oldDir, 0o750))

	now := time.Now()
	old := &session{id: "old", dir: oldDir}
	old.finish(orchestration.Summary{}, nil, now.Add(-2*time.Hour))
	recent := &session{id: "recent"}
	recent.finish(orchestration.Summary{}, nil, now.Add(-time.Minute))
	running := &session{id: "running"}
	st.add(old)
	st.add(recent)
	st.add(running)

	assert.Equal(t, 1, st.sweep(now, time.Hour))
	assert.Equal(t, 2, st.len())
	_, ok := st.get("old")
	assert.False(t, ok)
	assert.NoDirExists(t, oldDir)
}

func TestUploadName(t *testing.T) {
	tests := map[string]string{
		"export.csv":            "export.csv",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\data.xlsx`: "data.xlsx",
		"":                      "input",
		"..":                    "input",
	}
	for in, want := range tests {
		assert.Equal(t, want, uploadName(in), in)
	}
}
