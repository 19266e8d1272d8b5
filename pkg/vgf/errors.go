package vgf

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid VGF magic")
	ErrUnsupportedMajor = errors.New("unsupported VGF major version")
	ErrCorruptFile      = errors.New("corrupt VGF file")
	ErrMissingSection   = errors.New("missing VGF section")
)
