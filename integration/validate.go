package integration

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/jsonmapper/integration-mapper/mapping"
	"github.com/jsonmapper/integration-mapper/types"
)

// Validate checks that a definition can be saved and executed. It returns
// the first problem found as a *types.ConfigError.
func Validate(definition *types.IntegrationDefinition) error {
	if strings.TrimSpace(definition.Name) == "" {
		return &types.ConfigError{Field: "name", Err: errors.New("name is required")}
	}

	target := definition.Target
	switch target.Type {
	case types.TargetTypeHTTP:
		if err := validateHTTPTarget(target); err != nil {
			return err
		}
	case types.TargetTypeEmail:
		if err := validateEmailTarget(target.EmailConfig); err != nil {
			return err
		}
	default:
		return &types.ConfigError{Field: "target.type", Err: fmt.Errorf("unknown target type %q", target.Type)}
	}

	diagnostics := mapping.New(definition.Mappings...).Validate()
	if diagnostics.HasErrors() {
		return &types.ConfigError{Field: "mappings", Err: diagnostics.Error()}
	}
	return nil
}

func validateHTTPTarget(target types.Target) error {
	if strings.TrimSpace(target.URL) == "" {
		return &types.ConfigError{Field: "target.url", Err: errors.New("URL is required")}
	}
	parsed, err := url.Parse(target.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return &types.ConfigError{Field: "target.url", Err: fmt.Errorf("%q is not an http or https URL", target.URL)}
	}

	switch target.Method {
	case "GET", "POST":
	default:
		return &types.ConfigError{Field: "target.method", Err: fmt.Errorf("method %q is not supported", target.Method)}
	}

	auth := target.Auth
	switch target.AuthType {
	case types.AuthTypeBearer:
		if auth.Token == "" {
			return &types.ConfigError{Field: "target.auth.token", Err: errors.New("bearer token is required")}
		}
	case types.AuthTypeBasic:
		if auth.Username == "" {
			return &types.ConfigError{Field: "target.auth.username", Err: errors.New("username is required")}
		}
	case types.AuthTypeAPIKey:
		if auth.APIKey == "" {
			return &types.ConfigError{Field: "target.auth.apiKey", Err: errors.New("API key is required")}
		}
	case types.AuthTypeAzure:
		if auth.Scope == "" {
			return &types.ConfigError{Field: "target.auth.scope", Err: errors.New("token scope is required")}
		}
	}
	return nil
}

func validateEmailTarget(config types.EmailConfig) error {
	if strings.TrimSpace(config.SMTPServer) == "" {
		return &types.ConfigError{Field: "target.emailConfig.smtpServer", Err: errors.New("SMTP server is required")}
	}
	if strings.TrimSpace(config.FromEmail) == "" {
		return &types.ConfigError{Field: "target.emailConfig.fromEmail", Err: errors.New("sender is required")}
	}
	if len(config.Recipients()) == 0 {
		return &types.ConfigError{Field: "target.emailConfig.toEmail", Err: errors.New("at least one recipient is required")}
	}
	return nil
}
