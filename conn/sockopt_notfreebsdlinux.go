//go:build !freebsd && !linux

package conn

func (fns setFuncSlice) appendSetFwmarkFunc(_ int) setFuncSlice {
	return fns
}
