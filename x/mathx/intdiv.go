package mathx

// CeilDiv returns ceil(a/b) for unsigned integers, or 0 when b is 0.
// a+b-1 must not overflow T.
func CeilDiv[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
