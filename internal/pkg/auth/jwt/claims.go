package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set of a handshake identity token issued by the account service.
type Payload struct {
	// StandardClaims carries exp, iat and iss at the top level of the token.
	jwt.StandardClaims

	// Address is the wallet address the account service verified for the bearer.
	Address string `json:"address"`
}
