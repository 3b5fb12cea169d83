package scan

// Kind is the kind of a deletion target
type Kind string

const (
	KindDump    Kind = "dump"
	KindASCII   Kind = "ascii"
	KindLogFile Kind = "log_file"
	KindLogDir  Kind = "log_dir"
)

// Target is one path selected for removal
type Target struct {
	Path      string
	Kind      Kind
	ModelSet  string
	Model     string // Empty for log files and log dirs
	DumpIndex *int   // Set for dumps only
	Size      int64
}

// IsDir reports whether the target is removed as a directory
func (t Target) IsDir() bool {
	return t.Kind == KindLogDir
}
