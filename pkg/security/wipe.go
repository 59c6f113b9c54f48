package security

// secureWipe zeroes sensitive data in place. Best effort; Go gives no
// guarantee the compiler keeps the writes, but it shortens the window
// raw key bytes sit in memory.
func secureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
