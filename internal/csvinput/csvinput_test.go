package csvinput

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/bcnelson/guacamole-csv-importer/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	input := `site,device_name,protocol,port,hostname,username,password
Test Site,Test Server,ssh,22,192.168.1.1,admin,password
ROOT/Lab/RackA, Server 2 ,rdp,3389,10.0.0.2,,
`
	entries, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, domain.Entry{
		Line:       2,
		Site:       "Test Site",
		DeviceName: "Test Server",
		Hostname:   "192.168.1.1",
		Protocol:   domain.ProtocolSSH,
		Port:       "22",
		Username:   "admin",
		Password:   "password",
	}, entries[0])

	assert.Equal(t, 3, entries[1].Line)
	assert.Equal(t, "Server 2", entries[1].DeviceName)
	assert.Equal(t, domain.ProtocolRDP, entries[1].Protocol)
	assert.Empty(t, entries[1].Username)
}

func TestParseStripsBOMAndSkipsBlankRows(t *testing.T) {
	input := "\ufeffsite,device_name,hostname,protocol,port,username,password\n" +
		",,,,,,\n" +
		"Office,PC1,10.0.0.5,rdp,3389,a,b\n"

	entries, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Line)
}

func TestParseInvalidHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("name,protocol,hostname\nx,ssh,host\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Contains(t, err.Error(), "header must be exactly")
}

func TestParseEmptyFile(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestParseHeaderOnly(t *testing.T) {
	entries, err := Parse(strings.NewReader("site,device_name,hostname,protocol,port,username,password\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseCollectsRowErrors(t *testing.T) {
	input := `site,device_name,hostname,protocol,port,username,password
Office,PC1,,rdp,3389,a,b
Office,PC2,10.0.0.6,rdp,3389,a,b
Office,PC3,10.0.0.7,http,abc,a,b
`
	entries, err := Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Nil(t, entries)

	var errs validation.ValidationErrors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 3)
	assert.Equal(t, 2, errs[0].Line)
	assert.Equal(t, "hostname", errs[0].Field)
	assert.Equal(t, 4, errs[1].Line)
	assert.Equal(t, "protocol", errs[1].Field)
	assert.Equal(t, "port", errs[2].Field)
}

func TestParseShortRowMissesFields(t *testing.T) {
	input := "site,device_name,hostname,protocol,port,username,password\nOffice,PC1\n"
	_, err := Parse(strings.NewReader(input))

	var errs validation.ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.Len(t, errs, 3)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "connections.csv")
	content := "site,device_name,hostname,protocol,port,username,password\nOffice,PC1,10.0.0.5,rdp,3389,a,b\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	entries, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = ReadFile(filepath.Join(dir, "missing.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
