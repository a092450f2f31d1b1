//go:build !cwlog
// +build !cwlog

package wrt

import (
	"io"
	"log"

	param "github.com/SmartGraph/smgparam"
)

func New() io.Writer {
	return param.FileLogr.Writer()
}

func Start(f *log.Logger) error {
	return nil
}

func Stop() {}
