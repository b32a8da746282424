package azure

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Tokens are refreshed this long before they expire.
const refreshMargin = 5 * time.Minute

type ITokenClient interface {
	GetToken(ctx context.Context, scope string) (string, error)
}

// TokenClient issues Microsoft Entra access tokens for outbound requests
// and caches them per scope.
type TokenClient struct {
	Credential azcore.TokenCredential
	Logger     *logrus.Logger

	mutex  sync.Mutex
	tokens map[string]azcore.AccessToken
}

// NewTokenClient uses the default Azure credential chain: environment,
// workload identity, managed identity and the Azure CLI.
func NewTokenClient(logger *logrus.Logger) (*TokenClient, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating Azure credential")
	}
	return NewTokenClientWithCredential(cred, logger), nil
}

func NewTokenClientWithCredential(credential azcore.TokenCredential, logger *logrus.Logger) *TokenClient {
	return &TokenClient{
		Credential: credential,
		Logger:     logger,
		tokens:     map[string]azcore.AccessToken{},
	}
}

func (tokenClient *TokenClient) GetToken(ctx context.Context, scope string) (string, error) {
	if scope == "" {
		return "", errors.New("token scope is required")
	}

	tokenClient.mutex.Lock()
	defer tokenClient.mutex.Unlock()

	if token, ok := tokenClient.tokens[scope]; ok && time.Now().Add(refreshMargin).Before(token.ExpiresOn) {
		tokenClient.Logger.Tracef("Using cached token for scope %s", scope)
		return token.Token, nil
	}

	token, err := tokenClient.Credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	if err != nil {
		return "", errors.Wrapf(err, "getting token for scope %s", scope)
	}

	tokenClient.Logger.Debugf("Acquired token for scope %s, expires %s", scope, token.ExpiresOn.Format(time.RFC3339))
	tokenClient.tokens[scope] = token
	return token.Token, nil
}
