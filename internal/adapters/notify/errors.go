package notify

import "errors"

// ErrInvalidWebhook reports an unusable webhook URL.
var ErrInvalidWebhook = errors.New("invalid webhook url")
