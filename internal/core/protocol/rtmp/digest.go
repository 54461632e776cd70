package rtmp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
)

// Key material for the digest handshake.
const (
	genuineFMSConst = "Genuine Adobe Flash Media Server 001"
	genuineFPConst  = "Genuine Adobe Flash Player 001"
)

var randomCrud = []byte{
	0xf0, 0xee, 0xc2, 0x4a, 0x80, 0x68, 0xbe, 0xe8, 0x2e, 0x00, 0xd0, 0xd1, 0x02,
	0x9e, 0x7e, 0x57, 0x6e, 0xec, 0x5d, 0x2d, 0x29, 0x80, 0x6f, 0xab, 0x93, 0xb8,
	0xe6, 0x36, 0xcf, 0xeb, 0x31, 0xae,
}

var genuineFMSConstCrud = append([]byte(genuineFMSConst), randomCrud...)

const sha256DigestLen = 32

// Digest placement schemes within a 1536-byte signature.
const (
	schemeSimple = iota // no digest, echo handshake
	schemeClient        // digest offset derived from bytes 8..12
	schemeServer        // digest offset derived from bytes 772..776
)

func calcHmac(data, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func clientDigestOffset(buf []byte) int {
	off := int(buf[0]) + int(buf[1]) + int(buf[2]) + int(buf[3])
	return off%728 + 12
}

func serverDigestOffset(buf []byte) int {
	off := int(buf[0]) + int(buf[1]) + int(buf[2]) + int(buf[3])
	return off%728 + 776
}

// digestMessage is sig with the 32-byte digest window at off excised.
func digestMessage(sig []byte, off int) []byte {
	msg := make([]byte, 0, len(sig)-sha256DigestLen)
	msg = append(msg, sig[:off]...)
	return append(msg, sig[off+sha256DigestLen:]...)
}

func verifyDigest(sig []byte, off int, key []byte) bool {
	want := sig[off : off+sha256DigestLen]
	got := calcHmac(digestMessage(sig, off), key)
	return hmac.Equal(got, want)
}

// detectClientScheme probes both digest placements of C1 against the Flash
// Player key. A signature matching neither is a simple handshake.
func detectClientScheme(clientsig []byte) int {
	if verifyDigest(clientsig, serverDigestOffset(clientsig[772:776]), []byte(genuineFPConst)) {
		return schemeServer
	}
	if verifyDigest(clientsig, clientDigestOffset(clientsig[8:12]), []byte(genuineFPConst)) {
		return schemeClient
	}
	return schemeSimple
}

func generateS1(scheme int) []byte {
	sig := make([]byte, handshakeSize)
	copy(sig, []byte{0, 0, 0, 0, 1, 2, 3, 4})
	rand.Read(sig[8:])

	var off int
	if scheme == schemeClient {
		off = clientDigestOffset(sig[8:12])
	} else {
		off = serverDigestOffset(sig[772:776])
	}
	digest := calcHmac(digestMessage(sig, off), []byte(genuineFMSConst))
	copy(sig[off:], digest)
	return sig
}

func generateS2(scheme int, clientsig []byte) []byte {
	s2 := make([]byte, handshakeSize)
	rand.Read(s2[:handshakeSize-sha256DigestLen])

	var off int
	if scheme == schemeClient {
		off = clientDigestOffset(clientsig[8:12])
	} else {
		off = serverDigestOffset(clientsig[772:776])
	}
	challengeKey := clientsig[off : off+sha256DigestLen]
	hash := calcHmac(challengeKey, genuineFMSConstCrud)
	signature := calcHmac(s2[:handshakeSize-sha256DigestLen], hash)
	copy(s2[handshakeSize-sha256DigestLen:], signature)
	return s2
}

// generateS0S1S2 builds the full server handshake reply for the given C1. A
// simple-scheme client gets its own signature echoed back twice.
func generateS0S1S2(clientsig []byte) []byte {
	out := make([]byte, 0, 1+2*handshakeSize)
	out = append(out, 3)
	scheme := detectClientScheme(clientsig)
	if scheme == schemeSimple {
		out = append(out, clientsig...)
		return append(out, clientsig...)
	}
	out = append(out, generateS1(scheme)...)
	return append(out, generateS2(scheme, clientsig)...)
}
