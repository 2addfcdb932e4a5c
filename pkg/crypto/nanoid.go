package crypto

import (
	"crypto/rand"
	"math"
)

const (
	idAlphabet string = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	idSize     int    = 22 // 22 * 6 = 132 bits of entropy, above the 128-bit floor
)

// IDGenerator mints URL-safe random identifiers via rejection sampling, so
// every alphabet character is equally likely.
type IDGenerator struct {
	alphabet string
	mask     int
}

func idMask(alphabetLen int) int {
	for i := 1; i <= 8; i++ {
		mask := (2 << uint(i)) - 1
		if mask > alphabetLen-1 {
			return mask
		}
	}
	return 255
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		alphabet: idAlphabet,
		mask:     idMask(len(idAlphabet)),
	}
}

// Generate returns a fresh identifier of the default size.
func (g *IDGenerator) Generate() (string, error) {
	alphabetLen := len(g.alphabet)
	step := int(math.Ceil(1.6 * float64(g.mask*idSize) / float64(alphabetLen)))

	id := make([]byte, idSize)
	buffer := make([]byte, step)

	for position := 0; position < idSize; {
		if _, err := rand.Read(buffer); err != nil {
			return "", err
		}

		for i := 0; i < step && position < idSize; i++ {
			// Masked byte is only used when it lands inside the alphabet
			index := buffer[i] & byte(g.mask)
			if int(index) < alphabetLen {
				id[position] = g.alphabet[index]
				position++
			}
		}
	}

	return string(id), nil
}
