package constants

import (
	"path/filepath"
	"strings"
)

const (
	MIMEPdf  = "application/pdf"
	MIMEPng  = "image/png"
	MIMEJpeg = "image/jpeg"
	MIMEJpg  = "image/jpg"
	MIMEWebp = "image/webp"
	MIMETiff = "image/tiff"

	MIMEOctetStream = "application/octet-stream"
)

var extToMIME = map[string]string{
	"pdf":  MIMEPdf,
	"png":  MIMEPng,
	"jpg":  MIMEJpeg,
	"jpeg": MIMEJpeg,
	"webp": MIMEWebp,
	"tif":  MIMETiff,
	"tiff": MIMETiff,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MIMEByPath resolves the declared content type of a file from its name.
// Unknown extensions map to application/octet-stream.
func MIMEByPath(path string) string {
	if m, ok := extToMIME[NormalizeExt(filepath.Ext(path))]; ok {
		return m
	}
	return MIMEOctetStream
}

// IsImageMIME reports whether the content type is a raster image.
func IsImageMIME(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}
