package whatsapp

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// VerifyHandshake checks a webhook subscription handshake. It returns the
// challenge to echo back when the mode is "subscribe" and the token matches
// the configured verify token. A well-formed handshake with a wrong token or
// mode yields an empty challenge and no error; the caller decides the HTTP
// refusal.
func VerifyHandshake(mode, token, challenge, verifyToken string) (string, error) {
	if mode == "" || token == "" {
		return "", goerr.New("verification mode and token are required",
			goerr.T(types.ErrTagInvalidInput),
			goerr.V("mode", mode))
	}

	if mode == "subscribe" && token == verifyToken {
		return challenge, nil
	}

	return "", nil
}
