package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/faceid/internal/facematch"
)

// readFormFile reads the named multipart file field.
func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s is required", field)
	}
	defer file.Close()
	return readUpload(file)
}

// readFormFiles reads every file uploaded under the named field.
func readFormFiles(r *http.Request, field string) ([][]byte, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, fmt.Errorf("%s is required", field)
	}
	headers := r.MultipartForm.File[field]
	images := make([][]byte, 0, len(headers))
	for _, fh := range headers {
		data, err := func() ([]byte, error) {
			file, err := fh.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open file: %s", fh.Filename)
			}
			defer file.Close()
			return readUpload(file)
		}()
		if err != nil {
			return nil, err
		}
		images = append(images, data)
	}
	return images, nil
}

func readUpload(file multipart.File) ([]byte, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	return data, nil
}

// formParser reads typed form values, remembering the first error.
type formParser struct {
	r   *http.Request
	err error
}

func (p *formParser) floatValue(key string, def float64) float64 {
	s := strings.TrimSpace(p.r.FormValue(key))
	if s == "" || p.err != nil {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %q", key, s)
		return def
	}
	return v
}

func (p *formParser) intValue(key string, def int) int {
	s := strings.TrimSpace(p.r.FormValue(key))
	if s == "" || p.err != nil {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %q", key, s)
		return def
	}
	return v
}

func (p *formParser) boolValue(key string, def bool) bool {
	s := strings.TrimSpace(p.r.FormValue(key))
	if s == "" || p.err != nil {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %q", key, s)
		return def
	}
	return v
}

func (p *formParser) modeValue(key string, def facematch.Mode) facematch.Mode {
	s := strings.TrimSpace(p.r.FormValue(key))
	if s == "" || p.err != nil {
		return def
	}
	m, ok := facematch.ParseMode(s)
	if !ok {
		p.err = fmt.Errorf("invalid %s: %q", key, s)
		return def
	}
	return m
}
