package providers

import (
	"encoding/hex"

	"github.com/samber/do/v2"

	"github.com/keepsakeapp/keepsake/internal/auth"
	"github.com/keepsakeapp/keepsake/internal/config"
	"github.com/keepsakeapp/keepsake/internal/logger"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the authentication key.
// A key from the environment wins over the persisted one.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.TokenKey != "" {
		key, err := hex.DecodeString(cfg.Auth.TokenKey)
		if err != nil {
			return nil, err
		}
		return AuthKey(key), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	keyHex := hex.EncodeToString([]byte(authKey))
	return auth.NewTokenService(keyHex, cfg.Auth.AccessTokenDuration)
}

// ProvideAuthProvider provides the local account provider.
func ProvideAuthProvider(i do.Injector) (auth.Provider, error) {
	log := do.MustInvoke[*logger.Logger](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return auth.NewLocalProvider(storeHandle.Local, tokens, log.Logger), nil
}
