package app

import (
	"context"
	"fmt"
	"sync"

	cryptoDomain "github.com/allisson/apitokens/internal/crypto/domain"
	cryptoService "github.com/allisson/apitokens/internal/crypto/service"
)

// cryptoComponents groups the lazily built crypto dependencies.
type cryptoComponents struct {
	aeadManager        cryptoService.AEADManager
	kmsService         cryptoService.KMSService
	keyMaterialManager cryptoService.KeyMaterialManager
	keyMaterial        *cryptoDomain.KeyMaterial
	secretCipher       cryptoService.SecretCipher

	aeadManagerInit        sync.Once
	kmsServiceInit         sync.Once
	keyMaterialManagerInit sync.Once
	keyMaterialInit        sync.Once
	secretCipherInit       sync.Once
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KMSService returns the KMS service used to wrap the key file.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// KeyMaterialManager returns the key file manager.
func (c *Container) KeyMaterialManager() cryptoService.KeyMaterialManager {
	c.keyMaterialManagerInit.Do(func() {
		c.keyMaterialManager = cryptoService.NewKeyFileManager(c.KMSService(), c.config.KMSKeyURI, c.Logger())
	})
	return c.keyMaterialManager
}

// KeyMaterial returns the root key. TOKEN_ENCRYPTION_KEY wins over TOKEN_KEY_PATH.
func (c *Container) KeyMaterial() (*cryptoDomain.KeyMaterial, error) {
	var err error
	c.keyMaterialInit.Do(func() {
		c.keyMaterial, err = c.initKeyMaterial()
		if err != nil {
			c.initErrors["keyMaterial"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyMaterial"]; exists {
		return nil, storedErr
	}
	return c.keyMaterial, nil
}

// SecretCipher returns the cipher protecting stored token secrets.
func (c *Container) SecretCipher() (cryptoService.SecretCipher, error) {
	var err error
	c.secretCipherInit.Do(func() {
		c.secretCipher, err = c.initSecretCipher()
		if err != nil {
			c.initErrors["secretCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secretCipher"]; exists {
		return nil, storedErr
	}
	return c.secretCipher, nil
}

// initKeyMaterial loads the inline key or reads (and on first use creates) the key file.
func (c *Container) initKeyMaterial() (*cryptoDomain.KeyMaterial, error) {
	manager := c.KeyMaterialManager()
	ctx := context.Background()

	if c.config.TokenEncryptionKey != "" {
		km, err := manager.LoadInlineKey(ctx, c.config.TokenEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load inline encryption key: %w", err)
		}
		return km, nil
	}

	km, err := manager.GetOrCreateKey(ctx, c.config.TokenKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load key file: %w", err)
	}
	return km, nil
}

// initSecretCipher derives the secret cipher from the key material.
func (c *Container) initSecretCipher() (cryptoService.SecretCipher, error) {
	km, err := c.KeyMaterial()
	if err != nil {
		return nil, err
	}

	alg, err := cryptoDomain.ParseAlgorithm(c.config.TokenCipherAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cipher algorithm: %w", err)
	}

	cipher, err := cryptoService.NewSecretCipher(c.AEADManager(), km, alg)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret cipher: %w", err)
	}
	return cipher, nil
}
