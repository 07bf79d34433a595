package common

import "fmt"

var (
	ErrMissingURL       = fmt.Errorf("no image url")
	ErrUnexpectedStatus = fmt.Errorf("unexpected http status")
	ErrNotADirectory    = fmt.Errorf("path exists and is not a directory")
	ErrCatalogNotFound  = fmt.Errorf("catalog not found")
	ErrCatalogParse     = fmt.Errorf("cannot parse catalog")
	ErrInvalidFileName  = fmt.Errorf("invalid file name")
)
