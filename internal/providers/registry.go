package providers

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/config"
	"github.com/efs-sdk/accessmanager/internal/core"
	"github.com/efs-sdk/accessmanager/internal/providers/azure"
	"github.com/efs-sdk/accessmanager/internal/providers/stub"
)

// Backend bundles the storage side of token issuance.
type Backend struct {
	Type     string
	Resolver core.AccountResolver
	Signer   core.TokenSigner
}

// Build creates the storage backend selected by storage.type.
func Build(cfg config.StorageConfig, tokens config.TokenConfig) (*Backend, error) {
	lifetimes := azure.Lifetimes{
		Read:   tokens.ReadLifetime(),
		Write:  tokens.WriteLifetime(),
		Delete: tokens.DeleteLifetime(),
	}

	var b *Backend
	switch cfg.Type {
	case azure.Type:
		cred, err := azure.NewCredential(cfg)
		if err != nil {
			return nil, err
		}
		resolver, err := azure.NewResolver(cfg.SubscriptionID, cfg.ResourceGroup, cred)
		if err != nil {
			return nil, err
		}
		b = &Backend{
			Type:     azure.Type,
			Resolver: resolver,
			Signer:   azure.NewSigner(resolver, cfg.EndpointSuffix, lifetimes),
		}
	case stub.Type:
		backend, err := stub.New(cfg.Stub.Containers, lifetimes)
		if err != nil {
			return nil, err
		}
		log.Warn().Msg("using the in-memory stub storage backend, tokens are not usable against real storage")
		b = &Backend{
			Type:     stub.Type,
			Resolver: backend,
			Signer:   backend,
		}
	default:
		return nil, fmt.Errorf("unknown storage type '%s'", cfg.Type)
	}

	if cfg.AccountCacheTTL > 0 {
		b.Resolver = azure.NewCachingResolver(b.Resolver, cfg.AccountCacheSize, cfg.AccountCacheTTL)
	}
	return b, nil
}
