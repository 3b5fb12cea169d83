package fsops

// Deleter abstracts filesystem delete operations
// Enables mocking in tests to check exactly which paths get removed
type Deleter interface {
	// RemoveFile removes a non-directory entry. Directories are refused.
	RemoveFile(path string) error
	// RemoveDir removes an empty directory.
	RemoveDir(path string) error
}
