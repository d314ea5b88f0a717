package utils

import (
	"errors"
	"os"
	"path"

	"github.com/Trinoooo/eggie_echo/errs"
)

// CheckAndCreateFile 打开文件，父目录不存在时先创建
func CheckAndCreateFile(filePath string, flag int, perm os.FileMode) (*os.File, error) {
	dir, _ := path.Split(filePath)
	if dir != "" {
		_, err := os.Stat(dir)
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(dir, 0770); err != nil {
				return nil, errs.NewMkdirErr().WithErr(err)
			}
		} else if err != nil {
			if errors.Is(err, os.ErrPermission) {
				return nil, errs.NewFileNoPermissionErr().WithErr(err)
			}
			return nil, errs.NewFileStatErr().WithErr(err)
		}
	}

	fd, err := os.OpenFile(filePath, flag, perm)
	if err != nil {
		return nil, errs.NewOpenFileErr().WithErr(err)
	}
	return fd, nil
}
