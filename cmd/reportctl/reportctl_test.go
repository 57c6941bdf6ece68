package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/gradereports/internal/core"
	"github.com/JonMunkholm/gradereports/internal/core/coretest"
)

const fixtureJSON = `{
  "students": [
    {
      "registration_number": "21CS001",
      "name": "Alice Kumar",
      "branch": "CSE",
      "current_semester": 2,
      "grades": [
        {"semester": 1, "subject_code": "CS101", "subject_name": "Programming", "grade": "A", "credits": 4},
        {"semester": 1, "subject_code": "MA101", "subject_name": "Calculus", "grade": "F", "credits": 3}
      ]
    }
  ],
  "faculty": {"fac-1": ["21CS001"]}
}`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grades.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	engineLauncher = coretest.NewFakeLauncher()
	t.Cleanup(func() { engineLauncher = nil })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerate_CombinedFromFixture(t *testing.T) {
	fixture := writeFixture(t)
	out := filepath.Join(t.TempDir(), "report.pdf")

	stdout, stderr, err := runCLI(t, "generate", "--fixture", fixture, "--format", "pdf",
		"--mode", "combined", "--faculty", "fac-1", "-o", out, "21CS001", "ghost")
	require.Error(t, err, "ghost is not mapped to fac-1")
	assert.True(t, errors.Is(err, core.ErrForbidden))
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
	assert.NoFileExists(t, out)

	stdout, stderr, err = runCLI(t, "generate", "--fixture", fixture, "--format", "pdf",
		"--mode", "combined", "--faculty", "", "-o", out, "21CS001", "ghost")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+out)
	assert.Contains(t, stderr, "skipped unknown students: ghost")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestGenerate_NoValidStudentsLeavesNoFile(t *testing.T) {
	fixture := writeFixture(t)
	dir := t.TempDir()

	_, _, err := runCLI(t, "generate", "--fixture", fixture, "--format", "excel",
		"--faculty", "", "-o", "", "--dir", dir, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NF001")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGrades_PrintsSemesters(t *testing.T) {
	fixture := writeFixture(t)

	stdout, _, err := runCLI(t, "grades", "--fixture", fixture, "--json=false", "21CS001", "ghost")
	require.NoError(t, err)

	assert.Contains(t, stdout, "21CS001  Alice Kumar")
	assert.Contains(t, stdout, "Semester 1")
	// (8*4 + 0*3) / 7
	assert.Contains(t, stdout, "SGPA 4.57")
	assert.Contains(t, stdout, "Credits 4 / 7")
	assert.True(t, strings.Contains(stdout, "ghost:"), stdout)
}

func TestColumns(t *testing.T) {
	stdout, _, err := runCLI(t, "columns")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Greater(t, len(lines), 6)
	assert.True(t, strings.HasPrefix(lines[1], "reg_no"))
}

func TestFileSink_RemovesPartialArtifact(t *testing.T) {
	dir := t.TempDir()
	sink := &fileSink{dir: dir}

	w, err := sink.Begin(core.Artifact{FileName: "partial.pdf"})
	require.NoError(t, err)
	_, err = w.Write([]byte("%PDF"))
	require.NoError(t, err)

	failure := errors.New("stream broke")
	assert.Equal(t, failure, sink.finish(failure))
	assert.NoFileExists(t, filepath.Join(dir, "partial.pdf"))
}

func TestFileSink_NeverBegun(t *testing.T) {
	sink := &fileSink{dir: t.TempDir()}
	assert.NoError(t, sink.finish(nil))
	assert.Empty(t, sink.written)
}

func TestScale_DefaultScale(t *testing.T) {
	t.Setenv("REPORT_GRADE_SCALE_FILE", "")

	stdout, _, err := runCLI(t, "scale")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 11)
	assert.Contains(t, stdout, "ABSENT")
	assert.Contains(t, stdout, "Fail")
}
