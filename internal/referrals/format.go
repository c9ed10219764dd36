package referrals

import "time"

func formatUntil(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("02.01.2006 15:04")
}
