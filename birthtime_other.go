//go:build !linux && !darwin

package batchrename

import (
	"io/fs"
	"time"
)

func birthTime(string, fs.FileInfo) *time.Time {
	return nil
}
