package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash signals a malformed argon2id hash string.
var ErrInvalidHash = fmt.Errorf("invalid argon2id hash")

// ErrMalformedToken signals a wire token that is not "<uuid>.<secret>".
var ErrMalformedToken = fmt.Errorf("malformed token")

const secretBytes = 32

// Fixed argon2id parameters for invite-token secrets. Secrets are 256-bit
// random values, so the cheap end of the parameter space is sufficient.
type argonParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
	keyLen      uint32
}

var tokenParams = argonParams{memory: 64 * 1024, time: 1, parallelism: 2, keyLen: 32}

// GenerateInviteToken mints a new token id plus its wire form "<id>.<secret>"
// and the argon2id hash to persist. The raw wire token is shown to the caller
// once and never stored.
func GenerateInviteToken() (id uuid.UUID, wire string, secretHash string, err error) {
	id = uuid.New()

	raw := make([]byte, secretBytes)
	if _, err = rand.Read(raw); err != nil {
		return uuid.Nil, "", "", fmt.Errorf("generate token secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	secretHash, err = hashSecret(secret)
	if err != nil {
		return uuid.Nil, "", "", err
	}

	return id, fmt.Sprintf("%s.%s", id, secret), secretHash, nil
}

// SplitWireToken separates "<id>.<secret>" into its parts.
func SplitWireToken(wire string) (uuid.UUID, string, error) {
	parts := strings.SplitN(strings.TrimSpace(wire), ".", 2)
	if len(parts) != 2 || parts[1] == "" {
		return uuid.Nil, "", ErrMalformedToken
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", ErrMalformedToken
	}
	return id, parts[1], nil
}

// VerifySecret reports whether the secret matches the stored argon2id hash.
func VerifySecret(secret, encoded string) (bool, error) {
	params, salt, hash, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(secret), salt, params.time, params.memory, params.parallelism, params.keyLen)

	if subtle.ConstantTimeCompare(hash, computed) == 1 {
		return true, nil
	}
	return false, nil
}

func hashSecret(secret string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(secret), salt, tokenParams.time, tokenParams.memory, tokenParams.parallelism, tokenParams.keyLen)

	encSalt := base64.RawStdEncoding.EncodeToString(salt)
	encHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", tokenParams.memory, tokenParams.time, tokenParams.parallelism, encSalt, encHash), nil
}

func decodeHash(encoded string) (argonParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var params argonParams
	for _, token := range strings.Split(parts[3], ",") {
		keyValue := strings.SplitN(token, "=", 2)
		if len(keyValue) != 2 {
			return argonParams{}, nil, nil, ErrInvalidHash
		}
		key, value := keyValue[0], keyValue[1]
		switch key {
		case "m":
			if v, err := strconv.ParseUint(value, 10, 32); err == nil {
				params.memory = uint32(v)
			} else {
				return argonParams{}, nil, nil, ErrInvalidHash
			}
		case "t":
			if v, err := strconv.ParseUint(value, 10, 32); err == nil {
				params.time = uint32(v)
			} else {
				return argonParams{}, nil, nil, ErrInvalidHash
			}
		case "p":
			if v, err := strconv.ParseUint(value, 10, 8); err == nil {
				params.parallelism = uint8(v)
			} else {
				return argonParams{}, nil, nil, ErrInvalidHash
			}
		}
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	params.keyLen = uint32(len(hash))

	return params, salt, hash, nil
}
