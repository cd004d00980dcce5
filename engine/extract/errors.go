package extract

import (
	"errors"
	"fmt"
)

// SampleSize caps the raw bytes kept on an UnregisteredAssetError
const SampleSize = 100

// ErrWriteFailed wraps filesystem errors while storing an asset
var ErrWriteFailed = errors.New("extract: write failed")

// UnregisteredAssetError reports an asset record whose id has no
// symbol name
type UnregisteredAssetError struct {
	AssetID uint16
	Kind    Kind
	Sample  []byte
}

func (e *UnregisteredAssetError) Error() string {
	return fmt.Sprintf("extract: %s asset id %d was not registered; bytes: % x", e.Kind, e.AssetID, e.Sample)
}

// IsUnregistered reports whether err is or wraps an *UnregisteredAssetError
func IsUnregistered(err error) bool {
	var unregistered *UnregisteredAssetError
	return errors.As(err, &unregistered)
}

func unregistered(id uint16, kind Kind, data []byte) error {
	n := min(len(data), SampleSize)
	return &UnregisteredAssetError{
		AssetID: id,
		Kind:    kind,
		Sample:  append([]byte(nil), data[:n]...),
	}
}
