package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `site,device_name,hostname,protocol,port,username,password
Office,PC1,10.0.0.5,rdp,3389,admin,secret
Office/Lab,Switch,10.0.0.9,ssh,22,root,toor
`

type env struct {
	dir  string
	shim string
	csv  string
}

func setup(t *testing.T, history bool) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:  dir,
		shim: filepath.Join(dir, "directory.json"),
		csv:  filepath.Join(dir, "connections.csv"),
	}
	require.NoError(t, os.WriteFile(e.csv, []byte(sampleCSV), 0o600))

	t.Setenv("GUACAMOLE_URL", "")
	t.Setenv("GUACAMOLE_USERNAME", "")
	t.Setenv("GUACAMOLE_PASSWORD", "")
	t.Setenv("GUACAMOLE_FILE_SHIM", e.shim)
	if history {
		t.Setenv("DB_DRIVER", "sqlite3")
		t.Setenv("DB_DSN", filepath.Join(dir, "history.db"))
	} else {
		t.Setenv("DB_DRIVER", "none")
		t.Setenv("DB_DSN", "")
	}
	return e
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), "1.2.3", args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestImportCommand(t *testing.T) {
	e := setup(t, true)

	code, out, errOut := run(t, "import", e.csv)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Imported 2/2 connections")

	_, err := os.Stat(e.shim)
	assert.NoError(t, err)
}

func TestImportCommandRerunSkipsEverything(t *testing.T) {
	e := setup(t, false)

	code, _, errOut := run(t, "import", e.csv)
	require.Equal(t, 0, code, errOut)

	code, out, _ := run(t, "import", e.csv)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Imported 0/2 connections")
	assert.Contains(t, out, "2 skipped")
}

func TestImportCommandDryRun(t *testing.T) {
	e := setup(t, false)

	code, out, errOut := run(t, "import", "--dry-run", "--print-tree", e.csv)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "Imported 2/2 connections")
	assert.Contains(t, out, "- Group: Office (ID: dry-run-1)")
	assert.Contains(t, out, "* Connection: Switch")

	_, err := os.Stat(e.shim)
	assert.True(t, errors.Is(err, os.ErrNotExist), "dry run must not write the directory")
}

func TestImportCommandInvalidRows(t *testing.T) {
	e := setup(t, false)
	bad := filepath.Join(e.dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(
		"site,device_name,hostname,protocol,port,username,password\n"+
			"Office,PC1,10.0.0.5,rdp,notaport,admin,secret\n"), 0o600))

	code, out, errOut := run(t, "import", bad)
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "1 invalid entries")
	assert.Contains(t, errOut, "port")

	_, err := os.Stat(e.shim)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestImportCommandMissingFile(t *testing.T) {
	e := setup(t, false)

	code, _, errOut := run(t, "import", filepath.Join(e.dir, "missing.csv"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Could not read")
}

func TestImportCommandRequiresCredentials(t *testing.T) {
	e := setup(t, false)
	t.Setenv("GUACAMOLE_FILE_SHIM", "")

	code, _, errOut := run(t, "import", e.csv)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Invalid configuration")
}

func TestImportCommandRequiresArgument(t *testing.T) {
	setup(t, false)

	code, _, errOut := run(t, "import")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "accepts 1 arg")
}

func TestTreeCommand(t *testing.T) {
	e := setup(t, false)

	code, _, errOut := run(t, "import", e.csv)
	require.Equal(t, 0, code, errOut)

	code, out, errOut := run(t, "tree")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "- Group: Office (ID: 1)")
	assert.Contains(t, out, "* Connection: PC1 (ID: 2)")
	assert.Contains(t, out, "- Group: Lab (ID: 3)")
	assert.Contains(t, out, "* Connection: Switch (ID: 4)")
}

func TestHistoryCommand(t *testing.T) {
	e := setup(t, true)

	code, out, _ := run(t, "history")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No import runs recorded.")

	code, _, errOut := run(t, "import", e.csv)
	require.Equal(t, 0, code, errOut)

	code, out, errOut = run(t, "history", "--limit", "5")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, e.csv)
}

func TestHistoryCommandDisabled(t *testing.T) {
	setup(t, false)

	code, _, errOut := run(t, "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "run history is disabled")
}

func TestVersionCommand(t *testing.T) {
	setup(t, false)

	code, out, _ := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "guacimport 1.2.3\n", out)
}

func TestConfigFileOverridesEnvironment(t *testing.T) {
	e := setup(t, false)
	other := filepath.Join(e.dir, "other.json")
	cfgPath := filepath.Join(e.dir, "guacimport.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[guacamole]\nfile_shim = \""+filepath.ToSlash(other)+"\"\n"), 0o600))

	code, _, errOut := run(t, "--config", cfgPath, "import", e.csv)
	require.Equal(t, 0, code, errOut)

	_, err := os.Stat(other)
	assert.NoError(t, err)
	_, err = os.Stat(e.shim)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
