package domain

import "errors"

// ErrInvalidInput is the only fatal extraction error: the input was empty,
// whitespace, or comments only. Everything else degrades to a partial graph.
var ErrInvalidInput = errors.New("statement is empty or contains only comments")
