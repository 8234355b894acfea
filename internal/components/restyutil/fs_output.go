package restyutil

import (
	"log/slog"
	devenv "moodlefetch/dev/env"
	"os"
	"path/filepath"
	"sync"
)

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears `dir` (which may start with `<dev_state>`) and
// writes one file per message into it.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}

// MemoryOutput keeps messages in memory.
type MemoryOutput struct {
	mutex    sync.Mutex
	messages map[string]string
}

func NewMemoryOutput() *MemoryOutput {
	return &MemoryOutput{messages: map[string]string{}}
}

func (o *MemoryOutput) Write(id string, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.messages[id] = contents
}

func (o *MemoryOutput) Messages() map[string]string {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	out := make(map[string]string, len(o.messages))
	for k, v := range o.messages {
		out[k] = v
	}
	return out
}
