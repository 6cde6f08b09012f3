package extract

import "errors"

// ErrCompanyNotFound is returned when the page carries no company name.
var ErrCompanyNotFound = errors.New("company information not found")
