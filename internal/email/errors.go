package email

import "errors"

// ErrValidation marks payloads the pipeline rejects before any write.
// Handlers translate it to a 422.
var ErrValidation = errors.New("invalid webhook payload")
