package chat

import (
	"fmt"
	"time"
)

// FormatElapsed renders d as mm:ss at one second granularity. Minutes are
// padded to two digits and keep counting past 99.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
