//go:build !darwin

package sprite

// jpegIfHEIC returns path unchanged; HEIC conversion needs macOS sips.
func jpegIfHEIC(path string) (string, func(), error) {
	return path, nil, nil
}
