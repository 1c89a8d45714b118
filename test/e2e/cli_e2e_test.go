package e2e

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const questionCSV = "Studentnummer;Voornaam;Vraag;Vraagtype;Antwoord;Gekozen alternatief;Ongeldige pogingen\n" +
	"1;Ada;Q1;open;The cat sat on the mat;;0\n" +
	"2;Alan;Q1;open;The cat sat on a mat;;0\n" +
	"3;Grace;Q1;open;A completely different answer;;0\n"

// TestCLI_E2E verifies the built binary functions correctly
func TestCLI_E2E(t *testing.T) {
	tmpDir := t.TempDir()
	binName := "plagiarism"
	if runtime.GOOS == "windows" {
		binName = "plagiarism.exe"
	}
	binPath := filepath.Join(tmpDir, binName)

	// go test runs in the package directory; build from the module root.
	rootDir := "../.."

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/plagiarism")
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to build plagiarism: %v", err)
	}

	input := filepath.Join(tmpDir, "export.csv")
	if err := os.WriteFile(input, []byte(questionCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	submissions := filepath.Join(tmpDir, "submissions")
	if err := os.Mkdir(submissions, 0o750); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"Opdracht_1001_attempt_2024-01-01-10-00-00_essay.txt": "It was the best of times, it was the worst of times.",
		"Opdracht_1002_attempt_2024-01-01-11-00-00_essay.txt": "It was the best of times, it was the blurst of times.",
		"Opdracht_attempt_2024-01-01-10-00-00.txt":            "Name: Ada Lovelace (1001)\n",
		"Opdracht_attempt_2024-01-01-11-00-00.txt":            "Naam: Alan Turing (1002)\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(submissions, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	unknown := filepath.Join(tmpDir, "unknown.csv")
	if err := os.WriteFile(unknown, []byte("a,b,c\n1,2,3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		args     []string
		wantOut  string // substring match (case-insensitive)
		wantCode int
		wantFile string
	}{
		{
			name:     "Tabular Export",
			args:     []string{"--input", input, "--output", filepath.Join(tmpDir, "tabular.xlsx"), "--no-ansi"},
			wantOut:  "Detection Summary",
			wantCode: 0,
			wantFile: filepath.Join(tmpDir, "tabular.xlsx"),
		},
		{
			name:     "Submission Directory",
			args:     []string{"detect", submissions, "-o", filepath.Join(tmpDir, "archive.xlsx"), "--renderer", "plain"},
			wantOut:  "whole-corpus",
			wantCode: 0,
			wantFile: filepath.Join(tmpDir, "archive.xlsx"),
		},
		{
			name:     "Help",
			args:     []string{"--help"},
			wantOut:  "usage",
			wantCode: 0,
		},
		{
			name:     "Unsupported Input",
			args:     []string{"-i", unknown, "-o", filepath.Join(tmpDir, "x.xlsx")},
			wantOut:  "unsupported input format",
			wantCode: 5,
		},
		{
			name:     "Missing Input Flag",
			args:     []string{"detect"},
			wantOut:  "configuration error",
			wantCode: 4,
		},
		{
			name:     "Version Flag",
			args:     []string{"--version"},
			wantOut:  "plagiarism version",
			wantCode: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binPath, tt.args...)
			cmd.Env = append(os.Environ(), "NO_COLOR=1")
			output, err := cmd.CombinedOutput()

			outStr := string(output)

			if tt.wantCode == 0 {
				if err != nil {
					t.Errorf("Command failed unexpectedly: %v\nOutput: %s", err, outStr)
				}
			} else {
				var exitErr *exec.ExitError
				if !errors.As(err, &exitErr) {
					t.Fatalf("Expected exit code %d, got %v.\nOutput: %s", tt.wantCode, err, outStr)
				}
				if exitErr.ExitCode() != tt.wantCode {
					t.Errorf("Exit code = %d, want %d.\nOutput: %s", exitErr.ExitCode(), tt.wantCode, outStr)
				}
			}

			if tt.wantOut != "" {
				if !strings.Contains(strings.ToLower(outStr), strings.ToLower(tt.wantOut)) {
					t.Errorf("Output missing expected string.\nExpected: %q\nGot:\n%s", tt.wantOut, outStr)
				}
			}
			if tt.wantFile != "" {
				if _, err := os.Stat(tt.wantFile); err != nil {
					t.Errorf("report not written: %v", err)
				}
			}
		})
	}
}
