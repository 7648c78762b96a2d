//go:build !darwin && !dragonfly && !freebsd && !linux && !netbsd && !openbsd

package conn

func (fns setFuncSlice) appendSetTrafficClassFunc(_ int) setFuncSlice {
	return fns
}

func (fns setFuncSlice) appendSetReusePortFunc(_ bool) setFuncSlice {
	return fns
}
