// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidActionToken = errors.New("invalid action token")
	ErrInvalidToken       = errors.New("invalid token format")
)

// ActionTokenTick is the lifetime of one action token window.
// A token stays valid for the current and the previous window.
const ActionTokenTick = 12 * time.Hour

const memberCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MemberCodePrefix is prepended to every generated member code
const MemberCodePrefix = "MEM"

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateMemberCode creates a candidate member code: the prefix followed by
// eight upper-case alphanumerics. Uniqueness is checked by the caller.
func GenerateMemberCode() (string, error) {
	max := big.NewInt(int64(len(memberCodeChars)))
	b := make([]byte, 8)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate member code: %w", err)
		}
		b[i] = memberCodeChars[n.Int64()]
	}
	return MemberCodePrefix + string(b), nil
}

func actionTick(t time.Time) int64 {
	return t.Unix() / int64(ActionTokenTick/time.Second)
}

func actionTokenForTick(userID, action, salt string, tick int64) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(action))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(tick, 10)))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner tokens
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum[:18]), "=")
}

// GenerateActionToken creates a verification token binding a user to one
// action for the current tick window
func GenerateActionToken(userID, action, salt string, now time.Time) string {
	return actionTokenForTick(userID, action, salt, actionTick(now))
}

// ValidateActionToken checks a token against the current and previous tick
func ValidateActionToken(userID, action, token, salt string, now time.Time) error {
	if token == "" {
		return ErrInvalidActionToken
	}
	tick := actionTick(now)
	for _, t := range []int64{tick, tick - 1} {
		expected := actionTokenForTick(userID, action, salt, t)
		if hmac.Equal([]byte(token), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidActionToken
}
