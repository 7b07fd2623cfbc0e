/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/perepys/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0644))

	got, err := readInput(path, "from flag", strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from file", got, "file wins over text")

	got, err = readInput("", "from flag", strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from flag", got)

	got, err = readInput("", "", strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	_, err = readInput(filepath.Join(t.TempDir(), "missing.txt"), "", nil)
	assert.Error(t, err)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "abcdefg...", snippet("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", snippet(strings.Repeat("é", 20), 10))
}

func TestProcessCommand(t *testing.T) {
	out, err := execute(t, "process",
		"--text", "furthermore we utilize it. it is the the end",
		"--passes", "1", "--no-ml", "--no-cache", "--quiet")
	require.NoError(t, err)
	assert.Equal(t, "Also we use it. It is the end.\n", out)
}

func TestProcessCommand_NoText(t *testing.T) {
	_, err := execute(t, "process", "--text", "   ", "--no-ml", "--no-cache", "--quiet")
	assert.ErrorIs(t, err, errNoText)
}

func TestProcessCommand_InvalidMode(t *testing.T) {
	_, err := execute(t, "process", "--text", "Hello.", "--mode", "poetic", "--no-ml", "--no-cache", "--quiet")
	assert.Error(t, err)
	mode = "academic"
}

func TestProcessCommand_OutputFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	outPath := filepath.Join(dir, "out", "result.txt")
	require.NoError(t, os.WriteFile(in, []byte("# Title\n\nIt is **the the** end"), 0644))

	stdout, err := execute(t, "process", "--file", in, "--output", outPath, "--markdown",
		"--passes", "1", "--no-ml", "--no-cache", "--quiet", "--skip-grammar=false")
	inputFile, outputFile, isMarkdown = "", "", false
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "#")
	assert.NotContains(t, string(data), "the the")
}

func TestProcessCommand_CachesResult(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "data", "runs.db")
	args := []string{"process", "--text", "it is the the end", "--passes", "1",
		"--no-ml", "--no-cache=false", "--quiet", "--db", dbFile}

	first, err := execute(t, args...)
	require.NoError(t, err)
	second, err := execute(t, args...)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	db, err := store.New(dbFile)
	require.NoError(t, err)
	defer db.Close()

	runs, err := db.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].Cached, "newest run is served from the cache")
	assert.False(t, runs[1].Cached)
}

func TestProcessCommand_CacheMatchesExactText(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "runs.db")
	run := func(text string) string {
		out, err := execute(t, "process", "--text", text, "--passes", "1", "--skip-grammar",
			"--no-ml", "--no-cache=false", "--quiet", "--db", dbFile)
		require.NoError(t, err)
		return out
	}
	t.Cleanup(func() { skipGrammar = false })

	assert.Equal(t, "  Plain words here  \n", run("  Plain words here  "))
	assert.Equal(t, "Plain words here\n", run("Plain words here"))
	assert.Equal(t, "Plain words here\n", run("Plain words here"))
}
