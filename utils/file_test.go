package utils

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/Trinoooo/eggie_echo/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestFile struct {
	Description string
	Path        string
	WantCode    int64
}

func TestCheckAndCreateFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "exist"), 0770))

	testList := []*TestFile{
		{
			Description: "abs path & dir not exist",
			Path:        filepath.Join(base, "not_exist", "nested", "f1"),
		},
		{
			Description: "abs path & dir exist",
			Path:        filepath.Join(base, "exist", "f2"),
		},
		{
			Description: "path is a directory",
			Path:        filepath.Join(base, "exist") + "/",
			WantCode:    errs.OpenFileErrCode,
		},
	}

	for _, item := range testList {
		f, err := CheckAndCreateFile(item.Path, syscall.O_APPEND|syscall.O_CREAT|syscall.O_RDWR, 0660)
		if item.WantCode != 0 {
			assert.Error(t, err, item.Description)
			assert.Equal(t, item.WantCode, errs.GetCode(err), item.Description)
			continue
		}
		if assert.NoError(t, err, item.Description) {
			_, err = os.Stat(item.Path)
			assert.NoError(t, err, item.Description)
			_ = f.Close()
		}
		t.Log(item.Description, "pass")
	}
}

func TestWrapColor(t *testing.T) {
	assert.Equal(t, "\033[1;31;40m[ERROR] boom 1\033[0m", WrapError("boom %d", 1))
	assert.Equal(t, "\033[1;33;40m[WARN] careful\033[0m", WrapWarn("careful"))
	assert.Equal(t, "\033[1;34;40m[INFO] hi\033[0m", WrapInfo("hi"))
	assert.Equal(t, "\033[1;32;40m# ping\033[0m", WrapEcho("%s", "ping"))
}
