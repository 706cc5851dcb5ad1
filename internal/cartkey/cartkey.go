// Package cartkey encodes a (size, color) selection into the single string
// key stored under a product in a cart.
//
// The key is "{size}-{color}", or the bare size when no color applies. Decode
// splits on the first hyphen, so sizes must not contain one while colors may.
package cartkey

import "strings"

const Delimiter = "-"

func Encode(size, color string) string {
	if color == "" {
		return size
	}
	return size + Delimiter + color
}

func Decode(key string) (size, color string) {
	size, color, _ = strings.Cut(key, Delimiter)
	return size, color
}

// ValidSize reports whether size can take part in a key that decodes back to it.
func ValidSize(size string) bool {
	return size != "" && !strings.Contains(size, Delimiter)
}
