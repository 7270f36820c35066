//go:build cgo

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCmd_Registered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"init"})
	require.NoError(t, err)
	assert.Equal(t, "init", cmd.Name())
	assert.Contains(t, cmd.Long, "ONNX")
	assert.NotNil(t, cmd.Flags().Lookup("force"))
}

func TestInitCmd_AlreadyInstalled(t *testing.T) {
	libPath := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(libPath, []byte("fake lib"), 0o644))
	t.Setenv("ONNX_PATH", libPath)

	var out bytes.Buffer
	initCmd.SetOut(&out)
	initCmd.SetErr(&out)
	t.Cleanup(func() {
		initCmd.SetOut(nil)
		initCmd.SetErr(nil)
	})

	require.NoError(t, initCmd.RunE(initCmd, nil))
	assert.Contains(t, out.String(), "already installed at: "+libPath)
}
