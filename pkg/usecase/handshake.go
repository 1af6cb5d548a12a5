package usecase

import (
	whatsappsvc "github.com/talaria-bot/talaria/pkg/service/whatsapp"
)

// VerifyHandshake checks a webhook subscription handshake against the
// configured verification token. The bool reports whether the challenge may
// be echoed back; a mismatched token is not an error, just a refusal.
func (uc *UseCases) VerifyHandshake(mode, token, challenge string) (string, bool, error) {
	echo, err := whatsappsvc.VerifyHandshake(mode, token, challenge, uc.verifyToken)
	if err != nil {
		return "", false, err
	}
	return echo, echo != "", nil
}
