package rsync

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Summary returns a one-line digest of the statistics, suitable for a log
// message at the end of a pull.
func (s Stats) Summary(elapsed time.Duration) string {
	if elapsed <= 0 {
		elapsed = time.Second
	}
	downRate := int64(float64(s.BytesReceived) / elapsed.Seconds())
	return fmt.Sprintf("%s files (%s transferred, %s created, %s deleted), %s of %s, received %s (%s/sec)",
		humanize.Comma(s.NumFiles),
		humanize.Comma(s.RegTransferred),
		humanize.Comma(s.CreatedFiles),
		humanize.Comma(s.DeletedFiles),
		formatBytes(s.TotalTransferredSize),
		formatBytes(s.TotalFileSize),
		formatBytes(s.BytesReceived),
		formatBytes(downRate),
	)
}
