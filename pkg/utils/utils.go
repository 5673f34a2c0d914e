// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

import (
	"path/filepath"
	"strings"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// IsEmpty reports whether s contains nothing but whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ClipExtension returns the extension for an uploaded clip filename,
// defaulting to .webm when the upload carries none.
func ClipExtension(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return ".webm"
	}
	return ext
}

// IsVideoMime reports whether a multipart content type describes video.
func IsVideoMime(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "video/")
}
