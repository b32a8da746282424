package types

import "strings"

type SourceType string

const (
	SourceTypeWebhook SourceType = "webhook"
	SourceTypePubSub  SourceType = "pubsub"
)

func (sourceType SourceType) IsValidSourceType() bool {
	switch sourceType {
	case SourceTypeWebhook,
		SourceTypePubSub:
		return true
	default:
		return false
	}
}

type TargetType string

const (
	TargetTypeHTTP  TargetType = "http"
	TargetTypeEmail TargetType = "email"
)

func (targetType TargetType) IsValidTargetType() bool {
	switch targetType {
	case TargetTypeHTTP,
		TargetTypeEmail:
		return true
	default:
		return false
	}
}

type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeAPIKey AuthType = "apikey"
	AuthTypeAzure  AuthType = "azure"
)

func (authType AuthType) IsValidAuthType() bool {
	switch authType {
	case AuthTypeNone,
		AuthTypeBearer,
		AuthTypeBasic,
		AuthTypeAPIKey,
		AuthTypeAzure:
		return true
	default:
		return false
	}
}

const (
	DefaultAPIKeyHeader = "X-API-Key"
	DefaultEmailSubject = "Integration Notification"
	DefaultSMTPPort     = 587
	DefaultHTTPMethod   = "POST"
)

type SourceConfig struct {
	WebhookURL          string `json:"webhookUrl,omitempty" yaml:"webhookUrl,omitempty" mapstructure:"webhookUrl"`
	ProjectID           string `json:"projectId,omitempty" yaml:"projectId,omitempty" mapstructure:"projectId"`
	TopicID             string `json:"topicId,omitempty" yaml:"topicId,omitempty" mapstructure:"topicId"`
	Subscription        string `json:"subscription,omitempty" yaml:"subscription,omitempty" mapstructure:"subscription"`
	SubscriptionMode    string `json:"subscriptionMode,omitempty" yaml:"subscriptionMode,omitempty" mapstructure:"subscriptionMode"`
	PullIntervalSeconds int    `json:"pullIntervalSeconds,omitempty" yaml:"pullIntervalSeconds,omitempty" mapstructure:"pullIntervalSeconds"`
}

// Auth holds the credentials for every auth type; only the fields of the
// selected AuthType are read.
type Auth struct {
	Token      string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty" mapstructure:"username"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	HeaderName string `json:"headerName,omitempty" yaml:"headerName,omitempty" mapstructure:"headerName"`
	APIKey     string `json:"apiKey,omitempty" yaml:"apiKey,omitempty" mapstructure:"apiKey"`
	Scope      string `json:"scope,omitempty" yaml:"scope,omitempty" mapstructure:"scope"`
}

type EmailConfig struct {
	SMTPServer   string `json:"smtpServer" yaml:"smtpServer"`
	SMTPPort     int    `json:"smtpPort" yaml:"smtpPort"`
	SMTPUsername string `json:"smtpUsername" yaml:"smtpUsername"`
	SMTPPassword string `json:"smtpPassword" yaml:"smtpPassword"`
	FromEmail    string `json:"fromEmail" yaml:"fromEmail"`
	ToEmail      string `json:"toEmail" yaml:"toEmail"`
	Subject      string `json:"subject" yaml:"subject"`
	UseTLS       bool   `json:"useTLS" yaml:"useTLS"`
}

// Recipients splits the comma-separated ToEmail list.
func (config EmailConfig) Recipients() []string {
	recipients := []string{}
	for _, recipient := range strings.Split(config.ToEmail, ",") {
		if trimmed := strings.TrimSpace(recipient); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}

type Target struct {
	Type        TargetType        `json:"type" yaml:"type"`
	Method      string            `json:"method" yaml:"method"`
	URL         string            `json:"url" yaml:"url"`
	AuthType    AuthType          `json:"authType" yaml:"authType"`
	Auth        Auth              `json:"auth" yaml:"auth"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
	EmailConfig EmailConfig       `json:"emailConfig" yaml:"emailConfig"`
}

// IntegrationDefinition is the envelope exchanged with the persistence
// collaborator as config_json.
type IntegrationDefinition struct {
	Name         string       `json:"name" yaml:"name"`
	SourceType   SourceType   `json:"sourceType" yaml:"sourceType"`
	SourceConfig SourceConfig `json:"sourceConfig" yaml:"sourceConfig"`
	Target       Target       `json:"target" yaml:"target"`
	Mappings     []Mapping    `json:"mappings" yaml:"mappings"`
	Condition    string       `json:"condition,omitempty" yaml:"condition,omitempty"`
	SampleSource any          `json:"sampleSource,omitempty" yaml:"sampleSource,omitempty"`
	SampleTarget any          `json:"sampleTarget,omitempty" yaml:"sampleTarget,omitempty"`
}
