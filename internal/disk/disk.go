package disk

import (
	"syscall"
)

// Usage is a filesystem-level snapshot for one path
type Usage struct {
	UsedPercent float64
	FreeBytes   int64
	TotalBytes  int64
}

// GetDiskUsage returns the percentage of disk space used for a given path
func GetDiskUsage(path string) (usedPercent float64, freeBytes int64, totalBytes int64, err error) {
	var stat syscall.Statfs_t
	err = syscall.Statfs(path, &stat)
	if err != nil {
		return 0, 0, 0, err
	}

	totalBytes = int64(stat.Blocks) * int64(stat.Bsize)
	freeBytes = int64(stat.Bavail) * int64(stat.Bsize)
	usedBytes := totalBytes - freeBytes

	if totalBytes > 0 {
		usedPercent = (float64(usedBytes) / float64(totalBytes)) * 100.0
	}

	return usedPercent, freeBytes, totalBytes, nil
}

// GetUsage wraps GetDiskUsage into a Usage
func GetUsage(path string) (Usage, error) {
	used, free, total, err := GetDiskUsage(path)
	if err != nil {
		return Usage{}, err
	}
	return Usage{UsedPercent: used, FreeBytes: free, TotalBytes: total}, nil
}
