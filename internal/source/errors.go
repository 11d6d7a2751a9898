// SPDX-License-Identifier: MIT
package source

import "errors"

var (
	ErrUnsupportedFormat = errors.New("source: unsupported audio format")
	ErrOutOfRange        = errors.New("source: read range out of bounds")
	ErrNotOpened         = errors.New("source: no asset opened")
	ErrEmptyAsset        = errors.New("source: asset has no audio")
)
