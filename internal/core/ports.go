package core

import "context"

// AccountResolver maps an organization to its storage account.
type AccountResolver interface {
	Resolve(ctx context.Context, organization string) (*StorageAccount, error)
}

// TokenSigner produces signed container tokens and lists container contents.
type TokenSigner interface {
	// Sign returns a fresh token for the target, tagged with class.
	Sign(ctx context.Context, account *StorageAccount, target StorageTarget, class OperationClass) (*AccessToken, error)

	// ListFiles returns blob names under rootDir/, or matching pattern if rootDir is empty.
	ListFiles(ctx context.Context, account *StorageAccount, target StorageTarget, pattern, rootDir string) ([]string, error)
}

// Publisher hands messages to the message bus. It must not block on network I/O.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte)
}

// Issuer verifies the bearer token of an incoming request.
type Issuer interface {
	// Name is the issuer's name from the configuration.
	Name() string

	Verify(ctx context.Context, token string) (*Principal, error)
}
