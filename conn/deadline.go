package conn

import "time"

// ALongTimeAgo is a non-zero time, far in the past, used for immediate deadlines.
var ALongTimeAgo = time.Unix(0, 0)
