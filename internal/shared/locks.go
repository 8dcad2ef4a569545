package shared

import "fmt"

// ChargeLockKey builds redis keys for charge recomputation critical sections.
func ChargeLockKey(chargeID int64) string {
	return fmt.Sprintf("billing:charge:%d:recompute", chargeID)
}
