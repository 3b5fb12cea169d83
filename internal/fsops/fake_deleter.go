package fsops

// FakeDeleter implements Deleter for testing
// Records all delete calls without performing actual deletions.
// Fail maps a path to the error its removal should return.
type FakeDeleter struct {
	Calls []string
	Fail  map[string]error
}

func (f *FakeDeleter) RemoveFile(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	return f.Fail[path]
}

func (f *FakeDeleter) RemoveDir(path string) error {
	f.Calls = append(f.Calls, "rmdir:"+path)
	return f.Fail[path]
}
