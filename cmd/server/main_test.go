package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/records/internal/core"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImport(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")

	tests := []struct {
		name         string
		args         []string
		content      string
		wantErr      bool
		wantInserted int
		wantRejected int
	}{
		{
			name:         "stores valid rows",
			content:      "name,position,level\nAnn,Dev,Intern\n,Ops,Junior\n",
			wantInserted: 1,
			wantRejected: 1,
		},
		{
			name:         "no valid rows",
			content:      "name,position,level\nAnn,Dev,Boss\n",
			wantErr:      true,
			wantRejected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "staff.csv", tt.content)
			out, err := runCLI(t, "import", path)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			var res core.IngestionResult
			require.NoError(t, json.Unmarshal([]byte(out), &res), out)
			require.Equal(t, tt.wantInserted, res.InsertedCount)
			require.Len(t, res.Rejected, tt.wantRejected)
		})
	}
}

func TestImportDryRun(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")

	path := writeFile(t, "staff.csv", "name,position,level\nAnn,Dev,Intern\nBen,Ops,Junior\n")
	out, err := runCLI(t, "import", "--dry-run", path)
	require.NoError(t, err)

	var res core.PreviewResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	require.Equal(t, 2, res.AcceptedCount)
	require.Len(t, res.Samples, 2)
}

func TestImportDryRunWithoutStoreConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	path := writeFile(t, "staff.csv", "name,position,level\nAnn,Dev,Intern\n")
	out, err := runCLI(t, "import", "--dry-run", path)
	require.NoError(t, err)

	var res core.PreviewResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	require.Equal(t, 1, res.AcceptedCount)

	_, err = runCLI(t, "import", path)
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestImportMissingFile(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	_, err := runCLI(t, "import", filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
}

func TestTemplateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	_, err := runCLI(t, "template", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestEnvCommand(t *testing.T) {
	out, err := runCLI(t, "env")
	require.NoError(t, err)
	require.Contains(t, out, "STORE_DRIVER")
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")
	_, err := runCLI(t, "migrate")
	require.ErrorContains(t, err, "STORE_DRIVER")
}
