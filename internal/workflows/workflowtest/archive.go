package workflowtest

import (
	"context"
	"sync"
)

// Archiver records archived files in memory keyed by folder and name. Err, when set,
// is returned from every Archive call.
type Archiver struct {
	Err error

	mu    sync.Mutex
	files map[string][]byte
}

// Archive implements workflows.Archiver.
func (a *Archiver) Archive(_ context.Context, folder, name string, content []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	if a.files == nil {
		a.files = map[string][]byte{}
	}
	a.files[folder+"/"+name] = append([]byte(nil), content...)
	return nil
}

// File returns an archived file.
func (a *Archiver) File(folder, name string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.files[folder+"/"+name]
	return b, ok
}

// Len returns the number of archived files.
func (a *Archiver) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.files)
}
