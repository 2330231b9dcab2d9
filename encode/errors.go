package encode

import "errors"

var errEncode = errors.New("encode: internal failure")
