package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signature is a 65-byte ECDSA signature: r (32) || s (32) || v (1), with
// v in [27, 30]. s is always normalized to the lower half of the curve
// order on signing, matching Ethereum's EIP-2 malleability rule.
type Signature [65]byte

var (
	// ErrInvalidSignatureLength is returned when a signature is not 65 bytes.
	ErrInvalidSignatureLength = errors.New("crypto: signature must be 65 bytes")
	// ErrInvalidRecoveryByte is returned when v is outside [27, 30].
	ErrInvalidRecoveryByte = errors.New("crypto: recovery byte must be in [27, 30]")
	// ErrRecoveryFailed is returned when public key recovery fails.
	ErrRecoveryFailed = errors.New("crypto: signature recovery failed")
)

const signedMessagePrefix = "\x19Ethereum Signed Message:\n"

// prefixedDigest computes Keccak256(prefix || ascii(len(message)) || message),
// the digest that is actually signed and recovered against.
func prefixedDigest(message []byte) Hash {
	prefix := signedMessagePrefix + strconv.Itoa(len(message))
	return Keccak256Hash([]byte(prefix), message)
}

// Sign signs message with secret, a 32-byte secp256k1 private key, and
// returns the 65-byte signature r‖s‖v. go-ethereum's Sign already returns
// the canonical low-S form required to avoid malleability.
func Sign(message []byte, secret []byte) (Signature, error) {
	key, err := ethcrypto.ToECDSA(secret)
	if err != nil {
		return Signature{}, fmt.Errorf("crypto: invalid secret key: %w", err)
	}
	return SignWithKey(message, key)
}

// SignWithKey signs message with an already-parsed private key.
func SignWithKey(message []byte, key *ecdsa.PrivateKey) (Signature, error) {
	digest := prefixedDigest(message)

	sig, err := ethcrypto.Sign(digest[:], key)
	if err != nil {
		return Signature{}, fmt.Errorf("crypto: sign: %w", err)
	}

	var out Signature
	copy(out[:], sig[:65])
	// go-ethereum's Sign returns a raw recovery id in [0, 1]; encode it as
	// an Ethereum-style recovery byte.
	out[64] = sig[64] + 27
	return out, nil
}

// Recover recovers the address that produced signature over message.
// A cached lookup is attempted first via DefaultSignatureCache.
func Recover(message []byte, signature Signature) (Address, error) {
	digest := prefixedDigest(message)
	if addr, ok := DefaultSignatureCache.Get(digest, signature); ok {
		return addr, nil
	}
	addr, err := recoverDigest(digest, signature)
	if err != nil {
		return Address{}, err
	}
	DefaultSignatureCache.Add(digest, signature, addr)
	return addr, nil
}

func recoverDigest(digest Hash, signature Signature) (Address, error) {
	v := signature[64]
	if v < 27 || v > 30 {
		return Address{}, ErrInvalidRecoveryByte
	}

	recoverable := make([]byte, 65)
	copy(recoverable, signature[:64])
	recoverable[64] = v - 27

	pub, err := ethcrypto.SigToPub(digest[:], recoverable)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}
	return AddressOf(ethcrypto.FromECDSAPub(pub)), nil
}

// AddressOf derives an address from an uncompressed 65-byte public key:
// the low 20 bytes of Keccak256(pubkey[1:]).
func AddressOf(uncompressedPubkey []byte) Address {
	if len(uncompressedPubkey) != 65 || uncompressedPubkey[0] != 0x04 {
		return Address{}
	}
	return BytesToAddress(Keccak256(uncompressedPubkey[1:]))
}
