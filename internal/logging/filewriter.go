package logging

import (
	"os"
	"sync"
)

// reopenWriter appends to a log path and reopens it whenever the file at
// that path stops matching its open handle. Rotation renames the active
// file away; without the reopen every later line would follow the renamed
// inode into the rotated file and the active path would never come back.
type reopenWriter struct {
	path string

	mu   sync.Mutex
	file *os.File
	info os.FileInfo
}

func newReopenWriter(path string) (*reopenWriter, error) {
	w := &reopenWriter{path: path}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.reopen(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *reopenWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if current, err := os.Stat(w.path); err != nil || !os.SameFile(current, w.info) {
		if err := w.reopen(); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

// reopen requires the mutex to be held.
func (w *reopenWriter) reopen() error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	w.file = file
	w.info = info
	return nil
}
