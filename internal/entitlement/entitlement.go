// Package entitlement verifies premium purchase receipts.
//
// A receipt is a compact JWT signed with Ed25519 by the vendor's key. It
// names the purchased product and may carry a revocation time.
package entitlement

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/runnerr0/dreamlog/internal/apperror"
)

// Status is the outcome of a verification.
type Status struct {
	ProductID   string     `json:"product_id"`
	Purchased   bool       `json:"purchased"`
	Revoked     bool       `json:"revoked"`
	PurchasedAt *time.Time `json:"purchased_at,omitempty"`
}

// Active reports a purchased, non-revoked product.
func (s Status) Active() bool {
	return s.Purchased && !s.Revoked
}

// Verifier checks whether a product has been purchased.
type Verifier interface {
	Verify(ctx context.Context, productID string) (Status, error)
}

// Claims is the receipt payload.
type Claims struct {
	ProductID string           `json:"product_id"`
	RevokedAt *jwt.NumericDate `json:"revoked_at,omitempty"`
	jwt.RegisteredClaims
}

// ReceiptVerifier reads a receipt file and checks it against a public key.
type ReceiptVerifier struct {
	receiptPath string
	publicKey   ed25519.PublicKey
}

// NewReceiptVerifier creates a verifier for the receipt at receiptPath.
func NewReceiptVerifier(receiptPath string, publicKey ed25519.PublicKey) *ReceiptVerifier {
	return &ReceiptVerifier{receiptPath: receiptPath, publicKey: publicKey}
}

// LoadPublicKey reads a PEM-encoded Ed25519 public key.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	key, err := jwt.ParseEdPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("public key is not ed25519")
	}
	return pub, nil
}

// Verify reports the receipt's status for productID. A missing receipt
// file means not purchased. An unreadable, unsigned or mismatched receipt
// fails with an EntitlementVerificationFailure error.
func (v *ReceiptVerifier) Verify(ctx context.Context, productID string) (Status, error) {
	const op = "entitlement.Verify"

	status := Status{ProductID: productID}
	if err := ctx.Err(); err != nil {
		return status, err
	}

	data, err := os.ReadFile(v.receiptPath)
	if errors.Is(err, fs.ErrNotExist) {
		return status, nil
	}
	if err != nil {
		return status, apperror.EntitlementFailure(op, err)
	}

	claims, err := v.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return status, apperror.EntitlementFailure(op, err)
	}
	if claims.ProductID != productID {
		return status, nil
	}

	status.Purchased = true
	status.Revoked = claims.RevokedAt != nil
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		status.PurchasedAt = &t
	}
	return status, nil
}

// Parse checks a receipt token's signature and returns its claims.
func (v *ReceiptVerifier) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("receipt is empty")
	}
	if len(v.publicKey) != ed25519.PublicKeySize {
		return nil, errors.New("no public key configured")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid receipt: %w", err)
	}
	if !tok.Valid {
		return nil, errors.New("invalid receipt")
	}
	if strings.TrimSpace(claims.ProductID) == "" {
		return nil, errors.New("receipt names no product")
	}
	return claims, nil
}

// Install verifies token and writes it as the receipt file.
func (v *ReceiptVerifier) Install(ctx context.Context, token, productID string) (Status, error) {
	const op = "entitlement.Install"

	token = strings.TrimSpace(token)
	claims, err := v.Parse(token)
	if err != nil {
		return Status{ProductID: productID}, apperror.EntitlementFailure(op, err)
	}
	if claims.ProductID != productID {
		return Status{ProductID: productID}, apperror.EntitlementFailure(op,
			fmt.Errorf("receipt is for %q", claims.ProductID))
	}
	if err := os.MkdirAll(filepath.Dir(v.receiptPath), 0o700); err != nil {
		return Status{ProductID: productID}, apperror.Storage(op, err)
	}
	if err := os.WriteFile(v.receiptPath, []byte(token+"\n"), 0o600); err != nil {
		return Status{ProductID: productID}, apperror.Storage(op, err)
	}
	return v.Verify(ctx, productID)
}

// Static always returns the same status.
type Static struct {
	Status Status
	Err    error
}

func (s Static) Verify(_ context.Context, productID string) (Status, error) {
	st := s.Status
	st.ProductID = productID
	return st, s.Err
}

// Premium adapts a Verifier to a yes/no premium check for one product.
type Premium struct {
	Verifier  Verifier
	ProductID string
}

// HasPremium reports an active purchase of the configured product.
func (p Premium) HasPremium(ctx context.Context) (bool, error) {
	if p.Verifier == nil {
		return false, nil
	}
	st, err := p.Verifier.Verify(ctx, p.ProductID)
	if err != nil {
		return false, err
	}
	return st.Active(), nil
}
