package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `books:
  - title: Gitanjali
    author: Rabindranath Tagore
    physical_code: AP-0001
    category: Poetry
    tags: [poetry, nobel]
  - title: Lalsalu
    author: Syed Waliullah
    physical_code: ap-0001
  - title: Padma Nadir Majhi
    author: Manik Bandopadhyay
    physical_code: AP-0002
    max_reading_days: 21
`

func TestParseSeed(t *testing.T) {
	reqs, err := parseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	assert.Equal(t, "Gitanjali", reqs[0].Title)
	assert.Equal(t, []string{"poetry", "nobel"}, reqs[0].Tags)
	assert.Equal(t, 21, reqs[2].MaxReadingDays)
}

func TestParseSeed_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":         "books: []\n",
		"unknown field": "books:\n  - title: X\n    shelf: 4\n",
		"not yaml":      "books: [\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseSeed(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestReadPassword_NonTerminal(t *testing.T) {
	var out bytes.Buffer
	pw, err := readPassword(strings.NewReader("  correct horse battery\n"), &out, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery", pw)
	assert.Equal(t, "Password: ", out.String())
}

// run executes the CLI against a scratch data directory.
func run(t *testing.T, dataPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args,
		"--data-path", dataPath,
		"--env-file", filepath.Join(dataPath, "missing.env"),
	))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands_EndToEnd(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("LOG_LEVEL", "error")
	dataPath := t.TempDir()

	out, err := run(t, dataPath, "long enough password\n",
		"create-admin", "--username", "librarian", "--email", "lib@example.org")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Created admin librarian")

	seedPath := filepath.Join(dataPath, "books.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedYAML), 0o600))

	out, err = run(t, dataPath, "", "seed", "--admin", "librarian", "--file", seedPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 2 of 3 books")
	assert.Contains(t, out, "skipped #2")

	out, err = run(t, dataPath, "", "verify-ledger")
	require.NoError(t, err, out)
	assert.Contains(t, out, "All ledgers are consistent")

	out, err = run(t, dataPath, "", "reindex")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Indexed 2 books")
}

func TestSeed_RequiresAdmin(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("LOG_LEVEL", "error")
	dataPath := t.TempDir()

	seedPath := filepath.Join(dataPath, "books.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedYAML), 0o600))

	_, err := run(t, dataPath, "", "seed", "--admin", "nobody", "--file", seedPath)
	assert.Error(t, err)
}
