package qr

import (
	"github.com/skip2/go-qrcode"
)

// PNGSize is the pixel size of rendered ticket QR codes.
const PNGSize = 256

// EncodePNG renders a ticket's payload string as a PNG QR image. The
// payload itself is deliberately plain text: scanners verify it against
// the store, not cryptographically.
func EncodePNG(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, PNGSize)
}
