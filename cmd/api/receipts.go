package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// receiptGenerator produces human-friendly receipt codes for reward claims.
type receiptGenerator struct {
	secret string
}

func newReceiptGenerator(secret string) *receiptGenerator {
	return &receiptGenerator{secret: secret}
}

func (g *receiptGenerator) Generate(account string) string {
	nonce := uuid.NewString()

	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write([]byte(fmt.Sprintf("acct:%s|nonce:%s", account, nonce)))

	sum := mac.Sum(nil)
	tag := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum)

	return fmt.Sprintf(
		"RPT-%s-%s",
		strings.ToUpper(tag[:4]),
		strings.ToUpper(uuid.NewString()[:4]),
	)
}
