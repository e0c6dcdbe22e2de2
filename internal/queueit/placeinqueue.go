package queueit

import (
	"fmt"
	"strconv"
)

// Real digits of the obfuscated place-in-queue, most significant first.
var placeInQueuePositions = [...]int{30, 3, 11, 20, 7, 26, 9}

const maxPlaceInQueue = 9999999

// DecodePlaceInQueue projects the seven digit positions out of an obfuscated
// place-in-queue string and parses them as a base-10 integer.
func DecodePlaceInQueue(obfuscated string) (int, error) {
	digits := make([]byte, len(placeInQueuePositions))
	for i, pos := range placeInQueuePositions {
		if pos >= len(obfuscated) {
			return 0, fmt.Errorf("place in queue of length %d: %w", len(obfuscated), ErrMalformedToken)
		}
		c := obfuscated[pos]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("place in queue position %d is %q: %w", pos, c, ErrMalformedToken)
		}
		digits[i] = c
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, fmt.Errorf("place in queue %q: %w", digits, ErrMalformedToken)
	}
	return n, nil
}

// EncodePlaceInQueue writes place into the digit positions of filler, which must be
// at least 31 bytes long. Any filler works; the queue service uses GUID-like text.
func EncodePlaceInQueue(place int, filler string) (string, error) {
	if place < 0 || place > maxPlaceInQueue {
		return "", fmt.Errorf("place in queue %d out of range", place)
	}
	if len(filler) <= placeInQueuePositions[0] {
		return "", fmt.Errorf("filler of length %d is too short", len(filler))
	}
	digits := fmt.Sprintf("%07d", place)
	out := []byte(filler)
	for i, pos := range placeInQueuePositions {
		out[pos] = digits[i]
	}
	return string(out), nil
}
