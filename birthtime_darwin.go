//go:build darwin

package batchrename

import (
	"io/fs"
	"syscall"
	"time"
)

func birthTime(_ string, info fs.FileInfo) *time.Time {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}
	return timePtr(time.Unix(st.Birthtimespec.Unix()))
}
