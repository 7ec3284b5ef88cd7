// Copyright 2015-2017 Piprate Limited
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ld

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var mediaTypesByExtension = map[string]string{
	".jsonld": ApplicationJSONLDType,
	".json":   ApplicationJSONType,
	".nq":     ApplicationNQuadsType,
	".html":   TextHTMLType,
}

// FileLoader loads documents from the local file system. It accepts
// file:// IRIs as well as absolute and relative paths; relative paths are
// resolved against the loader's base directory.
type FileLoader struct {
	baseDir string
	log     *slog.Logger
}

// NewFileLoader creates a FileLoader rooted at baseDir. An empty baseDir
// means the working directory.
func NewFileLoader(baseDir string) *FileLoader {
	return &FileLoader{baseDir: baseDir, log: slog.Default()}
}

// WithLogger sets the logger for load events.
func (fl *FileLoader) WithLogger(logger *slog.Logger) *FileLoader {
	if logger != nil {
		fl.log = logger
	}
	return fl
}

// MediaTypeForPath returns the media type implied by the file extension,
// or "" when the extension is not recognised.
func MediaTypeForPath(path string) string {
	return mediaTypesByExtension[strings.ToLower(filepath.Ext(path))]
}

func (fl *FileLoader) resolvePath(u string) (string, error) {
	path := u
	if strings.HasPrefix(u, "file:") {
		parsed, err := url.Parse(u)
		if err != nil {
			return "", err
		}
		path = parsed.Path
	}
	if !filepath.IsAbs(path) && fl.baseDir != "" {
		path = filepath.Join(fl.baseDir, path)
	}
	return path, nil
}

// LoadDocument reads the file named by u. JSON and JSON-LD files are
// decoded; N-Quads files are returned as text.
func (fl *FileLoader) LoadDocument(ctx context.Context, u string) (*RemoteDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, newLoadError(LoadingDocumentFailed, err)
	}

	path, err := fl.resolvePath(u)
	if err != nil {
		return nil, NewJsonLdError(LoadingDocumentFailed, err)
	}

	mediaType := MediaTypeForPath(path)
	switch mediaType {
	case "":
		return nil, NewJsonLdError(LoadingDocumentFailed, "unknown media type for "+u)
	case TextHTMLType:
		return nil, NewJsonLdError(LoadingDocumentFailed, "HTML documents are not supported: "+u)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, NewJsonLdError(LoadingDocumentFailed, err)
	}
	defer file.Close()

	fl.log.Debug("loading file", "path", path, "mediaType", mediaType)

	remoteDoc := &RemoteDocument{DocumentURL: u, ContentType: mediaType}
	if mediaType == ApplicationNQuadsType {
		body, err := io.ReadAll(file)
		if err != nil {
			return nil, NewJsonLdError(LoadingDocumentFailed, err)
		}
		remoteDoc.Document = string(body)
		return remoteDoc, nil
	}

	remoteDoc.Document, err = DocumentFromReader(file)
	if err != nil {
		return nil, err
	}
	return remoteDoc, nil
}
