package services

import "math/rand"

const referencePrefix = "DJONANKO-"
const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const referenceLength = 10

// GenerateReference produces a human-readable transaction reference. The
// 36^10 space only makes collisions unlikely; the payment store's unique
// constraint is the real safety net.
func GenerateReference() string {
	suffix := make([]byte, referenceLength)
	for i := range suffix {
		suffix[i] = referenceAlphabet[rand.Intn(len(referenceAlphabet))]
	}
	return referencePrefix + string(suffix)
}
