package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/ib-77/railyard/pkg/rop"
)

type FileOp string

const (
	FileRead   FileOp = "read"
	FileWrite  FileOp = "write"
	FileAppend FileOp = "append"
)

type FileRequest struct {
	Op      FileOp `yaml:"op"`
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

func ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteFile creates or truncates path.
func WriteFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// AppendFile appends to an existing file; it never creates one.
func AppendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// File performs req. Reads return the file content; writes report the number
// of bytes written.
func File(ctx context.Context, req FileRequest) (string, error) {
	if err := rop.ContextErr(ctx); err != nil {
		return "", err
	}

	switch req.Op {
	case FileRead:
		return ReadFile(req.Path)
	case FileWrite:
		if err := WriteFile(req.Path, req.Content); err != nil {
			return "", err
		}
	case FileAppend:
		if err := AppendFile(req.Path, req.Content); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: file op %q", ErrBadInput, req.Op)
	}

	return fmt.Sprintf("%s %s: %d bytes", req.Op, req.Path, len(req.Content)), nil
}
