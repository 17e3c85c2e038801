//go:build !unix

package fileutil

func isCrossDevice(error) bool {
	return false
}
