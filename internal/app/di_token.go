package app

import (
	"fmt"
	"sync"

	"github.com/allisson/apitokens/internal/database"
	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
	tokenHTTP "github.com/allisson/apitokens/internal/token/http"
	tokenRepository "github.com/allisson/apitokens/internal/token/repository"
	tokenService "github.com/allisson/apitokens/internal/token/service"
	tokenUseCase "github.com/allisson/apitokens/internal/token/usecase"
)

// tokenComponents groups the lazily built token dependencies.
type tokenComponents struct {
	tokenRepository tokenUseCase.TokenRepository
	tokenStore      tokenUseCase.TokenStore
	tokenUseCase    tokenUseCase.TokenUseCase
	tokenHandler    *tokenHTTP.TokenHandler

	tokenRepositoryInit sync.Once
	tokenStoreInit      sync.Once
	tokenUseCaseInit    sync.Once
	tokenHandlerInit    sync.Once
}

// TokenRepository returns the token repository for the configured database driver.
func (c *Container) TokenRepository() (tokenUseCase.TokenRepository, error) {
	var err error
	c.tokenRepositoryInit.Do(func() {
		c.tokenRepository, err = c.initTokenRepository()
		if err != nil {
			c.initErrors["tokenRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenRepository"]; exists {
		return nil, storedErr
	}
	return c.tokenRepository, nil
}

// TokenStore returns the encrypting token store.
func (c *Container) TokenStore() (tokenUseCase.TokenStore, error) {
	var err error
	c.tokenStoreInit.Do(func() {
		c.tokenStore, err = c.initTokenStore()
		if err != nil {
			c.initErrors["tokenStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenStore"]; exists {
		return nil, storedErr
	}
	return c.tokenStore, nil
}

// TokenUseCase returns the token use case, wrapped with metrics when enabled.
func (c *Container) TokenUseCase() (tokenUseCase.TokenUseCase, error) {
	var err error
	c.tokenUseCaseInit.Do(func() {
		c.tokenUseCase, err = c.initTokenUseCase()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenUseCase"]; exists {
		return nil, storedErr
	}
	return c.tokenUseCase, nil
}

// TokenHandler returns the HTTP handler for token routes.
func (c *Container) TokenHandler() (*tokenHTTP.TokenHandler, error) {
	var err error
	c.tokenHandlerInit.Do(func() {
		c.tokenHandler, err = c.initTokenHandler()
		if err != nil {
			c.initErrors["tokenHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenHandler"]; exists {
		return nil, storedErr
	}
	return c.tokenHandler, nil
}

// initTokenRepository selects the repository based on the database driver.
func (c *Container) initTokenRepository() (tokenUseCase.TokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for token repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverSQLite:
		return tokenRepository.NewSQLiteTokenRepository(db), nil
	case database.DriverPostgres:
		return tokenRepository.NewPostgreSQLTokenRepository(db), nil
	case database.DriverMySQL:
		return tokenRepository.NewMySQLTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTokenStore combines the repository with the secret cipher.
func (c *Container) initTokenStore() (tokenUseCase.TokenStore, error) {
	repo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for token store: %w", err)
	}

	cipher, err := c.SecretCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret cipher for token store: %w", err)
	}

	mode, err := tokenDomain.ParseLookupMode(c.config.TokenLookupMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token lookup mode: %w", err)
	}

	return tokenUseCase.NewTokenStore(repo, cipher, mode, c.Logger()), nil
}

// initTokenUseCase creates the token use case with all its dependencies.
func (c *Container) initTokenUseCase() (tokenUseCase.TokenUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for token use case: %w", err)
	}

	store, err := c.TokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get token store for token use case: %w", err)
	}

	baseUseCase := tokenUseCase.NewTokenUseCase(
		c.config,
		txManager,
		store,
		tokenService.NewSecretGenerator(),
		tokenService.NewLegacyValidator(c.config.LegacyAPIToken),
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for token use case: %w", err)
		}
		return tokenUseCase.NewTokenUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initTokenHandler creates the token HTTP handler.
func (c *Container) initTokenHandler() (*tokenHTTP.TokenHandler, error) {
	useCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for token handler: %w", err)
	}
	return tokenHTTP.NewTokenHandler(useCase, c.config, c.Logger()), nil
}
