// Package ptr provides pointer helpers for tests.
package ptr

// Int64 returns a pointer to v, for optional fields such as an offset id.
func Int64(v int64) *int64 { return &v }
