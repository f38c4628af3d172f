//go:build !(darwin || linux || freebsd)

package dynlib

import "github.com/pixl-project/retroplayer/coreif"

func (l *Loader) open(path string) (coreif.Core, error) {
	return nil, ErrUnsupportedPlatform
}
