package upload

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// File is a local file selected for upload.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        io.ReaderAt
}

func (f File) reader() io.Reader {
	return io.NewSectionReader(f.Data, 0, f.Size)
}

// FromBytes wraps in-memory content. An empty contentType is sniffed.
func FromBytes(name, contentType string, b []byte) File {
	if contentType == "" {
		contentType = detectContentType(name, b)
	}
	return File{
		Name:        name,
		Size:        int64(len(b)),
		ContentType: contentType,
		Data:        bytes.NewReader(b),
	}
}

// OpenFile opens path for upload. The caller closes the returned file once
// the session is terminal.
func OpenFile(path string) (File, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return File{}, nil, err
	}

	head := make([]byte, 512)
	n, err := f.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		f.Close()
		return File{}, nil, err
	}

	return File{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: detectContentType(path, head[:n]),
		Data:        f,
	}, f, nil
}

// detectContentType trusts the extension first and falls back to sniffing.
func detectContentType(name string, head []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	if len(head) > 512 {
		head = head[:512]
	}
	mt, _, err := mime.ParseMediaType(http.DetectContentType(head))
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}
