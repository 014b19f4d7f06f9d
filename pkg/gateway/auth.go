package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// AuthMessagePrefix is prepended to every challenge before signing.
	AuthMessagePrefix = "Trade Intent auth: "

	challengeTTL = 5 * time.Minute
	sessionTTL   = 24 * time.Hour
	tokenIssuer  = "trade-intent-gateway"
)

type issuedChallenge struct {
	value     string
	expiresAt time.Time
}

// Authenticator runs the challenge-response wallet login flow and issues
// session tokens for authenticated connections.
type Authenticator struct {
	secret []byte

	mu         sync.Mutex
	challenges map[string]issuedChallenge
}

// NewAuthenticator creates an authenticator with the given JWT signing secret.
func NewAuthenticator(secret []byte) (*Authenticator, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	return &Authenticator{
		secret:     secret,
		challenges: make(map[string]issuedChallenge),
	}, nil
}

// IssueChallenge creates a one-time random challenge for a wallet address.
func (a *Authenticator) IssueChallenge(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid wallet address %q", address)
	}

	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	challenge := hex.EncodeToString(nonce)

	a.mu.Lock()
	a.challenges[strings.ToLower(address)] = issuedChallenge{
		value:     challenge,
		expiresAt: time.Now().Add(challengeTTL),
	}
	a.mu.Unlock()

	return challenge, nil
}

// VerifySignature checks the wallet's signature over the issued challenge and
// returns a session token on success. Challenges are single use.
func (a *Authenticator) VerifySignature(address, challenge, signatureHex string) (string, int64, error) {
	key := strings.ToLower(address)

	a.mu.Lock()
	issued, ok := a.challenges[key]
	delete(a.challenges, key)
	a.mu.Unlock()

	if !ok || issued.value != challenge {
		return "", 0, fmt.Errorf("no pending challenge for %s", address)
	}
	if time.Now().After(issued.expiresAt) {
		return "", 0, fmt.Errorf("challenge expired for %s", address)
	}

	signature, err := hexutil.Decode(signatureHex)
	if err != nil {
		return "", 0, fmt.Errorf("malformed signature: %w", err)
	}
	if len(signature) != 65 {
		return "", 0, fmt.Errorf("signature must be 65 bytes, got %d", len(signature))
	}

	// Wallets return the recovery byte as 27/28.
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	hash := hashMessage([]byte(AuthMessagePrefix + challenge))
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return "", 0, fmt.Errorf("failed to recover signer: %w", err)
	}
	if crypto.PubkeyToAddress(*pubKey) != common.HexToAddress(address) {
		return "", 0, fmt.Errorf("signature does not match address %s", address)
	}

	return a.issueToken(common.HexToAddress(address).Hex())
}

func (a *Authenticator) issueToken(address string) (string, int64, error) {
	expiresAt := time.Now().Add(sessionTTL)
	claims := jwt.RegisteredClaims{
		Subject:   address,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt.Unix(), nil
}

// ValidateToken parses a session token and returns the wallet address it was
// issued to.
func (a *Authenticator) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.Subject, nil
}

// SignChallenge is the client half of the flow: sigFn signs the prefixed
// message the way a wallet does and the result goes back to VerifySignature.
func SignChallenge(challenge string, sigFn func(message []byte) ([]byte, error)) (string, error) {
	signature, err := sigFn([]byte(AuthMessagePrefix + challenge))
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge: %w", err)
	}
	return hexutil.Encode(signature), nil
}

// hashMessage hashes a message with the Ethereum signed message prefix.
func hashMessage(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return crypto.Keccak256([]byte(prefix), data)
}
