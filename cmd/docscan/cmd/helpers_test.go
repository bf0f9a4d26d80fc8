package cmd

import (
	"bytes"
	"image"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

// executeCommand runs the root command with args and returns stdout and
// stderr. Flag values from earlier runs are reset first.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	globalConfig, configLoader, cfgFile, envFiles = nil, nil, "", ".env"

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// writeDocument saves a synthetic document photo into dir.
func writeDocument(t *testing.T, dir, name string) string {
	t.Helper()
	return testutil.SaveImage(t, testutil.GenerateDocumentImage(testutil.DefaultDocumentConfig()), dir, name)
}

func loadOutput(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	img, _, err := codec.Decode(f)
	require.NoError(t, err)
	return img
}
