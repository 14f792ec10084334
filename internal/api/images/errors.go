package images

import (
	"errors"
	"net/http"
)

var (
	ErrImageNotFound     = errors.New("image not found")
	ErrImageFileNotFound = errors.New("image file not found")
	ErrNoImageData       = errors.New("no image data found")
	ErrNotAnImage        = errors.New("file must be an image")
	ErrImageUnreadable   = errors.New("error reading image")
	ErrExportFailed      = errors.New("error exporting to HDF5")
	ErrImagePathTooLong  = errors.New("image path exceeds column length")
)

// httpError maps a store error onto a status code and the message shown to
// the client.
func httpError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrImageNotFound):
		return http.StatusNotFound, "Image not found"
	case errors.Is(err, ErrImageFileNotFound):
		return http.StatusNotFound, "Image file not found"
	case errors.Is(err, ErrNoImageData):
		return http.StatusNotFound, "No image data found"
	case errors.Is(err, ErrNotAnImage):
		return http.StatusBadRequest, "File must be an image"
	case errors.Is(err, ErrImageUnreadable):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrExportFailed):
		return http.StatusInternalServerError, "Error exporting to HDF5"
	}
	return http.StatusInternalServerError, "Internal server error"
}
